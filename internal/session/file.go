package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// File is a Provider backed by a session file in the config directory.
// Sign-ins and sign-outs made by this process notify synchronously;
// changes made by other processes are picked up by Watch.
type File struct {
	path     string
	verifier Verifier
	logger   *slog.Logger

	mu     sync.Mutex
	last   Identity
	lastOK bool
	obs    observers
}

// NewFile creates a provider reading path. verifier may be nil, in which
// case records carrying a token are treated as signed out.
func NewFile(path string, verifier Verifier, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f := &File{
		path:     path,
		verifier: verifier,
		logger:   logger,
	}
	f.last, f.lastOK = f.Current()
	return f
}

// Path returns the session file path.
func (f *File) Path() string {
	return f.path
}

// Load reads the persisted record.
func (f *File) Load() (Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("invalid session file: %w", err)
	}
	return rec, nil
}

// Current implements Provider.
func (f *File) Current() (Identity, bool) {
	rec, err := f.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("ignoring unreadable session", "path", f.path, "err", err)
		}
		return Identity{}, false
	}
	if rec.Token != "" {
		if f.verifier == nil {
			return Identity{}, false
		}
		id, err := f.verifier.Verify(rec.Token)
		if err != nil {
			f.logger.Info("session token rejected", "err", err)
			return Identity{}, false
		}
		return id, true
	}
	if rec.UserID == "" {
		return Identity{}, false
	}
	return rec.Identity(), true
}

// Subscribe implements Provider.
func (f *File) Subscribe(fn func(Identity, bool)) func() {
	return f.obs.add(fn)
}

// SignIn persists rec with mode 0600 and notifies observers.
func (f *File) SignIn(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write session: %w", err)
	}
	f.refresh()
	return nil
}

// SignOut removes the session file and notifies observers.
func (f *File) SignOut() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	f.refresh()
	return nil
}

// refresh re-reads the file and notifies observers if the identity changed.
func (f *File) refresh() {
	id, ok := f.Current()

	f.mu.Lock()
	changed := ok != f.lastOK || id != f.last
	f.last, f.lastOK = id, ok
	f.mu.Unlock()

	if changed {
		f.logger.Debug("session changed", "user", id.UserID, "signedIn", ok)
		f.obs.notify(id, ok)
	}
}

// Watch starts watching the session directory and returns once the watch is
// registered. Events are processed until ctx is done.
func (f *File) Watch(ctx context.Context) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Catch anything that changed before the watch was registered.
	f.refresh()

	go func() {
		defer watcher.Close()
		target := filepath.Clean(f.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					f.refresh()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("session watcher error", "err", err)
			}
		}
	}()
	return nil
}

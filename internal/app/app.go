// Package app wires the configured backend, session, cache and sync
// coordinator together for one CLI invocation or feed server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/googleapis/gax-go/v2"

	"todolist/internal/auth"
	"todolist/internal/backend/firestore"
	"todolist/internal/backend/sqlstore"
	"todolist/internal/cache"
	"todolist/internal/config"
	"todolist/internal/service"
	"todolist/internal/session"
	"todolist/internal/syncer"
)

// ErrAuth marks failures to obtain backend credentials.
var ErrAuth = errors.New("backend credentials unavailable")

// App holds the collaborators shared by commands.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Session *session.File

	// Set by Connect or Attach.
	Store service.Store
	Cache *cache.Cache
	Sync  *syncer.Coordinator
	Local *auth.Local

	Stdin io.Reader
	Now   func() time.Time

	closers []func() error
}

// New creates an App without a backend. Commands that need one call Connect.
func New(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &App{
		Config:  cfg,
		Logger:  logger,
		Session: session.NewFile(cfg.SessionPath(), auth.NewVerifier(cfg.SecretPath()), logger),
		Stdin:   os.Stdin,
		Now:     time.Now,
	}
}

// Connect opens the configured backend. It is a no-op once a store is attached.
func (a *App) Connect(ctx context.Context) error {
	if a.Store != nil {
		return nil
	}

	var (
		store service.Store
		err   error
	)
	s := a.Config.Settings
	switch s.Backend {
	case config.BackendFirestore:
		if s.Firestore.ProjectID == "" {
			return fmt.Errorf("%w: firestore.project_id is not set", ErrAuth)
		}
		ts, tsErr := auth.TokenSource(ctx, a.Config)
		if tsErr != nil {
			return fmt.Errorf("%w: %w", ErrAuth, tsErr)
		}
		store, err = firestore.New(ctx, s.Firestore.ProjectID, ts)
	case config.BackendPostgres:
		if s.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres.dsn is not set", ErrAuth)
		}
		store, err = sqlstore.OpenPostgres(ctx, s.Postgres.DSN)
	default:
		store, err = sqlstore.OpenSQLite(ctx, s.SQLite.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", s.Backend, err)
	}
	a.Logger.Debug("backend opened", "backend", s.Backend)

	if err := a.Attach(store); err != nil {
		store.Close()
		a.Store = nil
		return err
	}
	return nil
}

// Attach builds the cache and coordinator on top of store.
func (a *App) Attach(store service.Store) error {
	secret, err := auth.LoadOrCreateSecret(a.Config.SecretPath())
	if err != nil {
		return err
	}
	a.Store = store
	a.Local = auth.NewLocal(store, secret)
	a.Cache = cache.New()
	a.Sync = syncer.New(store, a.Session, a.Cache, a.syncOptions())
	return nil
}

func (a *App) syncOptions() syncer.Options {
	s := a.Config.Settings.Sync
	return syncer.Options{
		CallTimeout:    s.CallTimeout,
		DeleteAttempts: s.DeleteAttempts,
		Backoff: gax.Backoff{
			Initial: s.BackoffInitial,
			Max:     s.BackoffMax,
		},
		Logger: a.Logger,
	}
}

// Identity returns the signed-in identity.
func (a *App) Identity() (session.Identity, bool) {
	return a.Session.Current()
}

// EnsureProfile creates the profile document for rec's user if it is missing.
func (a *App) EnsureProfile(ctx context.Context, rec session.Record) (service.UserProfile, error) {
	profile, err := a.Sync.FetchProfile(ctx, rec.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, syncer.ErrProfileNotFound) {
		return service.UserProfile{}, err
	}
	profile = service.UserProfile{
		ID:     rec.UserID,
		Name:   rec.Name,
		Email:  rec.Email,
		Joined: a.Now().UTC(),
	}
	if err := a.Sync.SaveProfile(ctx, rec.UserID, profile); err != nil {
		return service.UserProfile{}, err
	}
	return profile, nil
}

// OnClose registers fn to run after the backend is closed.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases the coordinator, the backend and everything registered with OnClose.
func (a *App) Close() error {
	var errs []error
	if a.Sync != nil {
		a.Sync.Close()
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	for _, fn := range a.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

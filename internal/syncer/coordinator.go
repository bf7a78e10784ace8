// Package syncer mediates between the local cache and the remote document store.
//
// A Coordinator resolves the signed-in identity for every operation, issues
// the remote calls, and applies successful results to the cache. It is the
// cache's only writer.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"
	"golang.org/x/sync/singleflight"

	"todolist/internal/cache"
	"todolist/internal/service"
	"todolist/internal/session"
)

const (
	// DefaultCallTimeout bounds every remote call.
	DefaultCallTimeout = 10 * time.Second

	// DefaultDeleteAttempts is the delete verification budget.
	DefaultDeleteAttempts = 3
)

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	// CallTimeout is the deadline applied to each remote call.
	CallTimeout time.Duration

	// DeleteAttempts is the total number of delete+verify rounds.
	DeleteAttempts int

	// Backoff spaces delete attempts.
	Backoff gax.Backoff

	Logger *slog.Logger

	// Sleep waits between delete attempts. Defaults to gax.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.DeleteAttempts <= 0 {
		o.DeleteAttempts = DefaultDeleteAttempts
	}
	if o.Backoff.Initial <= 0 {
		o.Backoff.Initial = 100 * time.Millisecond
	}
	if o.Backoff.Max <= 0 {
		o.Backoff.Max = 2 * time.Second
	}
	if o.Backoff.Multiplier < 1 {
		o.Backoff.Multiplier = 2
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Sleep == nil {
		o.Sleep = gax.Sleep
	}
	return o
}

// Coordinator orchestrates reads and writes of one user's tasks.
type Coordinator struct {
	store   service.Store
	session session.Provider
	cache   *cache.Cache
	opts    Options
	log     *slog.Logger

	fetches     singleflight.Group
	unsubscribe func()
}

// New creates a coordinator and binds the cache to the current identity.
// The cache is reset on every later sign-in or sign-out.
func New(store service.Store, provider session.Provider, c *cache.Cache, opts Options) *Coordinator {
	opts = opts.withDefaults()
	co := &Coordinator{
		store:   store,
		session: provider,
		cache:   c,
		opts:    opts,
		log:     opts.Logger.With("component", "syncer"),
	}

	id, ok := provider.Current()
	c.Reset(ownerOf(id, ok))
	co.unsubscribe = provider.Subscribe(func(id session.Identity, ok bool) {
		co.log.Info("session changed", "user", id.UserID, "signedIn", ok)
		c.Reset(ownerOf(id, ok))
	})
	return co
}

// Close detaches the coordinator from the session provider.
func (c *Coordinator) Close() {
	c.unsubscribe()
}

// Cache returns the cache the coordinator writes to.
func (c *Coordinator) Cache() *cache.Cache {
	return c.cache
}

func ownerOf(id session.Identity, ok bool) string {
	if !ok {
		return ""
	}
	return id.UserID
}

// owner resolves the collection owner for an operation. An empty ownerID
// means the signed-in identity.
func (c *Coordinator) owner(ownerID string) (string, error) {
	id, ok := c.session.Current()
	if !ok || id.UserID == "" {
		return "", ErrPrecondition
	}
	if ownerID != "" && ownerID != id.UserID {
		return "", fmt.Errorf("%w: %s is not the signed-in user", ErrPrecondition, ownerID)
	}
	return id.UserID, nil
}

func (c *Coordinator) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opts.CallTimeout)
}

// FetchCollection returns the owner's tasks. A fetched collection is served
// from the cache; otherwise one remote read is shared by all concurrent callers.
func (c *Coordinator) FetchCollection(ctx context.Context, ownerID string) ([]service.Task, error) {
	owner, err := c.owner(ownerID)
	if err != nil {
		return nil, err
	}
	if snap := c.cache.Snapshot(); snap.Owner == owner && snap.State == cache.Fetched {
		return snap.Collection, nil
	}
	return c.load(ctx, owner)
}

// Refresh reads the collection again even when it is cached. On failure the
// cached tasks are kept.
func (c *Coordinator) Refresh(ctx context.Context, ownerID string) ([]service.Task, error) {
	owner, err := c.owner(ownerID)
	if err != nil {
		return nil, err
	}
	return c.load(ctx, owner)
}

func (c *Coordinator) load(ctx context.Context, owner string) ([]service.Task, error) {
	// The shared read must not be cancelled by whichever caller started it.
	ch := c.fetches.DoChan(owner, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), owner)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]service.Task)), nil
	}
}

func (c *Coordinator) fetch(ctx context.Context, owner string) ([]service.Task, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	read := c.cache.BeginRead(owner)
	path := service.TasksPath(owner)
	docs, err := c.store.List(ctx, path)
	if err != nil {
		err = remoteErr("list", path, err)
		c.log.Warn("fetch failed", "owner", owner, "err", err)
		c.cache.SetFailed(read, err)
		return nil, err
	}

	tasks, stored := c.cache.SetCollection(read, c.decodeTasks(docs))
	if !stored {
		c.log.Debug("fetch result discarded after session change", "owner", owner)
	}
	c.log.Debug("collection fetched", "owner", owner, "tasks", len(tasks))
	return tasks, nil
}

// decodeTasks drops documents that are not tasks.
func (c *Coordinator) decodeTasks(docs []service.Document) []service.Task {
	tasks := make([]service.Task, 0, len(docs))
	for _, doc := range docs {
		t, err := service.DecodeTask(doc)
		if err != nil {
			c.log.Warn("dropping undecodable document", "path", doc.Path, "err", err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// AddTask writes a new task and adds it to the cache.
func (c *Coordinator) AddTask(ctx context.Context, ownerID string, task service.Task) error {
	owner, err := c.owner(ownerID)
	if err != nil {
		return err
	}
	return c.put(ctx, owner, task)
}

// UpdateTask replaces an existing task and updates the cache.
func (c *Coordinator) UpdateTask(ctx context.Context, ownerID string, task service.Task) error {
	owner, err := c.owner(ownerID)
	if err != nil {
		return err
	}
	return c.put(ctx, owner, task)
}

func (c *Coordinator) put(ctx context.Context, owner string, task service.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	path := service.TaskPath(owner, task.ID)
	if err := c.store.Set(ctx, path, task.Fields()); err != nil {
		return remoteErr("set", path, err)
	}
	c.cache.PutTask(owner, task)
	return nil
}

func validateTask(t service.Task) error {
	if !service.ValidSegment(t.ID) {
		return fmt.Errorf("%w: bad id %q", ErrInvalidTask, t.ID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidTask, t.Priority)
	}
	return nil
}

// SetDone marks a task done or not done and returns the updated task.
func (c *Coordinator) SetDone(ctx context.Context, ownerID, taskID string, done bool) (service.Task, error) {
	owner, err := c.owner(ownerID)
	if err != nil {
		return service.Task{}, err
	}
	task, err := c.lookup(ctx, owner, taskID)
	if err != nil {
		return service.Task{}, err
	}
	task.IsDone = done
	if err := c.put(ctx, owner, task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// lookup finds a task in the cache, falling back to a remote read.
func (c *Coordinator) lookup(ctx context.Context, owner, taskID string) (service.Task, error) {
	if !service.ValidSegment(taskID) {
		return service.Task{}, fmt.Errorf("%w: bad id %q", ErrInvalidTask, taskID)
	}
	if t, ok := c.cache.Task(owner, taskID); ok {
		return t, nil
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	path := service.TaskPath(owner, taskID)
	doc, found, err := c.store.Get(ctx, path)
	if err != nil {
		return service.Task{}, remoteErr("get", path, err)
	}
	if !found {
		return service.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return service.DecodeTask(doc)
}

// FilterCollection queries the store for tasks whose field equals value and
// makes the result the cache's active view. The unfiltered collection is kept.
func (c *Coordinator) FilterCollection(ctx context.Context, ownerID, field string, value any) ([]service.Task, error) {
	owner, err := c.owner(ownerID)
	if err != nil {
		return nil, err
	}
	if !service.IsTaskField(field) {
		return nil, fmt.Errorf("unknown field: %s", field)
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	read := c.cache.BeginRead(owner)
	path := service.TasksPath(owner)
	docs, err := c.store.Query(ctx, path, field, value)
	if err != nil {
		c.cache.EndRead(read)
		return nil, remoteErr("query", path, err)
	}
	tasks, _ := c.cache.SetFilter(read, field, value, c.decodeTasks(docs))
	return tasks, nil
}

// ClearFilter restores the unfiltered collection as the active view.
func (c *Coordinator) ClearFilter(ownerID string) error {
	owner, err := c.owner(ownerID)
	if err != nil {
		return err
	}
	c.cache.ClearFilter(owner)
	return nil
}

// FetchProfile returns the owner's profile, from the cache when present.
func (c *Coordinator) FetchProfile(ctx context.Context, ownerID string) (service.UserProfile, error) {
	owner, err := c.owner(ownerID)
	if err != nil {
		return service.UserProfile{}, err
	}
	if snap := c.cache.Snapshot(); snap.Owner == owner && snap.Profile != nil {
		return *snap.Profile, nil
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	path := service.UserPath(owner)
	doc, found, err := c.store.Get(ctx, path)
	if err != nil {
		return service.UserProfile{}, remoteErr("get", path, err)
	}
	if !found {
		return service.UserProfile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, owner)
	}
	profile, err := service.DecodeProfile(doc)
	if err != nil {
		c.log.Warn("undecodable profile", "path", path, "err", err)
		return service.UserProfile{}, err
	}
	c.cache.SetProfile(owner, profile)
	return profile, nil
}

// SaveProfile writes the owner's profile document.
func (c *Coordinator) SaveProfile(ctx context.Context, ownerID string, profile service.UserProfile) error {
	owner, err := c.owner(ownerID)
	if err != nil {
		return err
	}
	if profile.ID == "" {
		profile.ID = owner
	}
	if profile.ID != owner {
		return fmt.Errorf("%w: profile %s belongs to another user", ErrPrecondition, profile.ID)
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	path := service.UserPath(owner)
	if err := c.store.Set(ctx, path, profile.Fields()); err != nil {
		return remoteErr("set", path, err)
	}
	c.cache.SetProfile(owner, profile)
	return nil
}

// DeleteAccount deletes every task of the owner, then the profile, and
// clears the cache. Each delete is verified like DeleteTask.
func (c *Coordinator) DeleteAccount(ctx context.Context, ownerID string) error {
	owner, err := c.owner(ownerID)
	if err != nil {
		return err
	}

	listCtx, cancel := c.callCtx(ctx)
	path := service.TasksPath(owner)
	docs, err := c.store.List(listCtx, path)
	cancel()
	if err != nil {
		return remoteErr("list", path, err)
	}

	for _, doc := range docs {
		if err := c.deleteVerified(ctx, doc.Path); err != nil {
			return err
		}
	}
	if err := c.deleteVerified(ctx, service.UserPath(owner)); err != nil {
		return err
	}

	c.log.Info("account data deleted", "owner", owner, "tasks", len(docs))
	c.cache.Reset(owner)
	return nil
}

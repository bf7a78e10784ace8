// Package cache holds the in-memory mirror of the signed-in user's profile and task collection.
//
// The cache publishes an immutable Snapshot after every mutation. A mutation
// replaces the whole snapshot, so observers never see a half-applied change,
// and every observer has been called by the time the mutating method returns.
package cache

import (
	"sync"

	"todolist/internal/service"
)

// State distinguishes a collection that was never read from one that was read and is empty.
type State int

const (
	// NotFetched means no successful read has happened for the current owner.
	NotFetched State = iota
	// Fetched means Collection reflects the last successful read.
	Fetched
	// Failed means the last read failed; Collection is whatever was there before.
	Failed
)

func (s State) String() string {
	switch s {
	case NotFetched:
		return "not-fetched"
	case Fetched:
		return "fetched"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Filter describes the equality filter behind the active view.
type Filter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Snapshot is a consistent view of the cache. Slices are never shared with the cache.
type Snapshot struct {
	Owner      string
	State      State
	Collection []service.Task
	Filter     *Filter
	// Tasks is the active view: the filter result when Filter is set, else Collection.
	Tasks   []service.Task
	Profile *service.UserProfile
	Err     error
	Version uint64
}

// Cache is the single shared mutable container. The sync coordinator is its only writer.
type Cache struct {
	// pub serializes mutation and delivery so observers see versions in order.
	pub sync.Mutex

	mu     sync.RWMutex
	snap   Snapshot
	subs   map[int]func(Snapshot)
	nextID int

	// journal holds task writes that a read in flight may not have seen,
	// and every write made before the first read.
	journal []change
	reads   int
	epoch   uint64
}

// change is one confirmed task write.
type change struct {
	version uint64
	id      string
	task    service.Task
	removed bool
}

// Read identifies a remote read of an owner's tasks, started with BeginRead.
// Task writes applied to the cache while the read is open are replayed onto
// its result, so a read that started before a write cannot undo it.
type Read struct {
	Owner string
	since uint64
	epoch uint64
}

// New creates an empty cache with no owner.
func New() *Cache {
	return &Cache{subs: make(map[int]func(Snapshot))}
}

// Snapshot returns a copy of the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.snap)
}

// Subscribe registers fn to receive every published snapshot.
// fn runs on the mutating goroutine and must not mutate the cache.
func (c *Cache) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// update applies fn to a copy of the snapshot and publishes the result.
// fn runs with mu held and returns false to leave the snapshot untouched.
func (c *Cache) update(fn func(s *Snapshot) bool) bool {
	c.pub.Lock()
	defer c.pub.Unlock()

	c.mu.Lock()
	next := clone(c.snap)
	if !fn(&next) {
		c.mu.Unlock()
		return false
	}
	next.Version = c.snap.Version + 1
	c.snap = next
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub(clone(next))
	}
	return true
}

// ownedBy guards a mutation against a cache rebound to another owner.
func ownedBy(s *Snapshot, owner string) bool {
	return owner != "" && s.Owner == owner
}

// Reset clears the cache and binds it to owner ("" when signed out).
// Reads begun before the reset are discarded when they complete.
func (c *Cache) Reset(owner string) {
	c.update(func(s *Snapshot) bool {
		c.epoch++
		c.reads = 0
		c.journal = nil
		*s = Snapshot{Owner: owner, Version: s.Version}
		return true
	})
}

// BeginRead marks the start of a remote read of owner's tasks.
// Every BeginRead must be completed by SetCollection, SetFailed, SetFilter or EndRead.
func (c *Cache) BeginRead(owner string) Read {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ownedBy(&c.snap, owner) {
		c.reads++
	}
	return Read{Owner: owner, since: c.snap.Version, epoch: c.epoch}
}

// EndRead completes a read whose result is not stored, e.g. a failed query.
func (c *Cache) EndRead(r Read) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current(&c.snap, r) {
		c.endRead(&c.snap)
	}
}

// current reports whether r belongs to the cache's present owner and epoch.
// Must be called with mu held.
func (c *Cache) current(s *Snapshot, r Read) bool {
	return r.epoch == c.epoch && ownedBy(s, r.Owner)
}

// endRead closes one read and drops journal entries nobody can need.
// Must be called with mu held.
func (c *Cache) endRead(s *Snapshot) {
	if c.reads > 0 {
		c.reads--
	}
	if s.State == Fetched && c.reads == 0 {
		c.journal = nil
	}
}

// record journals a write when a read is open or nothing was fetched yet.
// Must be called with mu held.
func (c *Cache) record(s *Snapshot, ch change) {
	if s.State == Fetched && c.reads == 0 {
		return
	}
	ch.version = s.Version + 1
	c.journal = append(c.journal, ch)
}

// replay applies the writes made after since onto tasks. With keep set,
// written tasks that fail keep are removed instead of upserted.
// Must be called with mu held.
func (c *Cache) replay(tasks []service.Task, since uint64, keep func(service.Task) bool) []service.Task {
	for _, ch := range c.journal {
		if ch.version <= since {
			continue
		}
		if ch.removed || (keep != nil && !keep(ch.task)) {
			tasks = remove(tasks, ch.id)
			continue
		}
		tasks = upsert(tasks, ch.task)
	}
	return tasks
}

// SetCollection stores the result of a successful read and drops any filter
// view. Writes confirmed while the read was in flight are applied on top; the
// stored collection is returned. A read begun before a Reset is discarded.
func (c *Cache) SetCollection(r Read, tasks []service.Task) ([]service.Task, bool) {
	var stored []service.Task
	ok := c.update(func(s *Snapshot) bool {
		if !c.current(s, r) {
			return false
		}
		merged := c.replay(copyTasks(tasks), r.since, nil)
		s.State = Fetched
		s.Err = nil
		s.Collection = merged
		s.Filter = nil
		s.Tasks = copyTasks(merged)
		stored = copyTasks(merged)
		c.endRead(s)
		return true
	})
	if !ok {
		return tasks, false
	}
	if stored == nil {
		stored = []service.Task{}
	}
	return stored, true
}

// SetFailed records a failed read without touching the cached tasks.
func (c *Cache) SetFailed(r Read, err error) bool {
	return c.update(func(s *Snapshot) bool {
		if !c.current(s, r) {
			return false
		}
		if s.State != Fetched {
			s.State = Failed
		}
		s.Err = err
		c.endRead(s)
		return true
	})
}

// SetFilter makes tasks the active view, keeping the unfiltered collection.
// Writes confirmed while the query was in flight are reconciled against the
// filter; the stored view is returned.
func (c *Cache) SetFilter(r Read, field string, value any, tasks []service.Task) ([]service.Task, bool) {
	var view []service.Task
	ok := c.update(func(s *Snapshot) bool {
		if !c.current(s, r) {
			return false
		}
		matches := func(t service.Task) bool {
			return service.FieldEquals(t.Fields(), field, value)
		}
		view = c.replay(copyTasks(tasks), r.since, matches)
		s.Filter = &Filter{Field: field, Value: value}
		s.Tasks = copyTasks(view)
		c.endRead(s)
		return true
	})
	if !ok {
		return tasks, false
	}
	if view == nil {
		view = []service.Task{}
	}
	return view, true
}

// ClearFilter restores the unfiltered collection as the active view.
func (c *Cache) ClearFilter(owner string) bool {
	return c.update(func(s *Snapshot) bool {
		if !ownedBy(s, owner) || s.Filter == nil {
			return false
		}
		s.Filter = nil
		s.Tasks = copyTasks(s.Collection)
		return true
	})
}

// PutTask reconciles a successfully written task into the collection and the filter view.
// A collection that was never fetched stays unfetched so the next read is not
// skipped; the write is kept for Task lookups until then.
func (c *Cache) PutTask(owner string, task service.Task) bool {
	return c.update(func(s *Snapshot) bool {
		if !ownedBy(s, owner) {
			return false
		}
		c.record(s, change{id: task.ID, task: task})
		if s.State == Fetched {
			s.Collection = upsert(s.Collection, task)
		}
		if s.Filter != nil {
			if service.FieldEquals(task.Fields(), s.Filter.Field, s.Filter.Value) {
				s.Tasks = upsert(s.Tasks, task)
			} else {
				s.Tasks = remove(s.Tasks, task.ID)
			}
		} else {
			s.Tasks = copyTasks(s.Collection)
		}
		return true
	})
}

// RemoveTask drops a deleted task from the collection and the filter view.
func (c *Cache) RemoveTask(owner, taskID string) bool {
	return c.update(func(s *Snapshot) bool {
		if !ownedBy(s, owner) {
			return false
		}
		c.record(s, change{id: taskID, removed: true})
		s.Collection = remove(s.Collection, taskID)
		s.Tasks = remove(s.Tasks, taskID)
		return true
	})
}

// SetProfile caches the owner's profile.
func (c *Cache) SetProfile(owner string, profile service.UserProfile) bool {
	return c.update(func(s *Snapshot) bool {
		if !ownedBy(s, owner) {
			return false
		}
		p := profile
		s.Profile = &p
		return true
	})
}

// Task looks up a task among the latest confirmed writes, the cached
// collection and the active view.
func (c *Cache) Task(owner, taskID string) (service.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap.Owner != owner {
		return service.Task{}, false
	}
	for i := len(c.journal) - 1; i >= 0; i-- {
		if ch := c.journal[i]; ch.id == taskID {
			return ch.task, !ch.removed
		}
	}
	for _, list := range [][]service.Task{c.snap.Collection, c.snap.Tasks} {
		for _, t := range list {
			if t.ID == taskID {
				return t, true
			}
		}
	}
	return service.Task{}, false
}

func upsert(tasks []service.Task, task service.Task) []service.Task {
	for i, t := range tasks {
		if t.ID == task.ID {
			tasks[i] = task
			return tasks
		}
	}
	return append(tasks, task)
}

func remove(tasks []service.Task, id string) []service.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func copyTasks(tasks []service.Task) []service.Task {
	if tasks == nil {
		return nil
	}
	out := make([]service.Task, len(tasks))
	copy(out, tasks)
	return out
}

func clone(s Snapshot) Snapshot {
	s.Collection = copyTasks(s.Collection)
	s.Tasks = copyTasks(s.Tasks)
	if s.Filter != nil {
		f := *s.Filter
		s.Filter = &f
	}
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}

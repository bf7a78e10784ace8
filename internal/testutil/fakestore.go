// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sort"
	"sync"

	"todolist/internal/service"
)

// Operation names used by FakeStore.Calls.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpCreate = "create"
	OpDelete = "delete"
	OpList   = "list"
	OpQuery  = "query"
)

// FakeStore is an in-memory implementation of service.Store for testing.
type FakeStore struct {
	mu    sync.Mutex
	docs  map[string]map[string]any // path -> fields
	calls map[string]int

	// deleted documents still visible to stale reads
	ghosts    map[string]map[string]any
	ghostLeft map[string]int

	// Error injection for testing
	GetErr    error
	SetErr    error
	CreateErr error
	DeleteErr error
	ListErr   error
	QueryErr  error

	// StickyDeletes makes Delete report success without removing anything.
	StickyDeletes bool

	// StaleReads is how many Gets after a Delete still return the deleted document.
	StaleReads int

	// Hooks run before the operation is applied, outside the store lock.
	BeforeSet    func(path string)
	BeforeCreate func(path string)
	BeforeList   func(collectionPath string)
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		docs:      make(map[string]map[string]any),
		calls:     make(map[string]int),
		ghosts:    make(map[string]map[string]any),
		ghostLeft: make(map[string]int),
	}
}

// PutTask seeds a task document for owner.
func (f *FakeStore) PutTask(owner string, task service.Task) {
	f.PutRaw(service.TaskPath(owner, task.ID), task.Fields())
}

// PutProfile seeds a profile document.
func (f *FakeStore) PutProfile(profile service.UserProfile) {
	f.PutRaw(service.UserPath(profile.ID), profile.Fields())
}

// PutRaw seeds an arbitrary document.
func (f *FakeStore) PutRaw(path string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = copyFields(fields)
}

// Has reports whether a document exists.
func (f *FakeStore) Has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[path]
	return ok
}

// Fields returns a copy of a stored document.
func (f *FakeStore) Fields(path string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[path]
	return copyFields(doc), ok
}

// Calls returns how many times op was invoked.
func (f *FakeStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// ResetCalls zeroes the call counters.
func (f *FakeStore) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
}

func (f *FakeStore) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

// Get implements service.Store.
func (f *FakeStore) Get(ctx context.Context, path string) (service.Document, bool, error) {
	f.count(OpGet)
	if f.GetErr != nil {
		return service.Document{}, false, f.GetErr
	}
	_, id, err := service.ParentCollection(path)
	if err != nil {
		return service.Document{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[path]
	if !ok && f.ghostLeft[path] > 0 {
		f.ghostLeft[path]--
		doc, ok = f.ghosts[path], true
	}
	if !ok {
		return service.Document{}, false, nil
	}
	return service.Document{ID: id, Path: path, Fields: copyFields(doc)}, true, nil
}

// Set implements service.Store.
func (f *FakeStore) Set(ctx context.Context, path string, fields map[string]any) error {
	f.count(OpSet)
	if f.BeforeSet != nil {
		f.BeforeSet(path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.SetErr != nil {
		return f.SetErr
	}
	if !service.IsDocumentPath(path) {
		return service.ErrInvalidPath
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = copyFields(fields)
	delete(f.ghostLeft, path)
	return nil
}

// Create implements service.Store.
func (f *FakeStore) Create(ctx context.Context, path string, fields map[string]any) error {
	f.count(OpCreate)
	if f.BeforeCreate != nil {
		f.BeforeCreate(path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.CreateErr != nil {
		return f.CreateErr
	}
	if !service.IsDocumentPath(path) {
		return service.ErrInvalidPath
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[path]; ok {
		return service.ErrExists
	}
	f.docs[path] = copyFields(fields)
	delete(f.ghostLeft, path)
	return nil
}

// Delete implements service.Store.
func (f *FakeStore) Delete(ctx context.Context, path string) error {
	f.count(OpDelete)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if !service.IsDocumentPath(path) {
		return service.ErrInvalidPath
	}
	if f.StickyDeletes {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[path]
	if !ok {
		return nil
	}
	delete(f.docs, path)
	if f.StaleReads > 0 {
		f.ghosts[path] = doc
		f.ghostLeft[path] = f.StaleReads
	}
	return nil
}

// List implements service.Store.
func (f *FakeStore) List(ctx context.Context, collectionPath string) ([]service.Document, error) {
	f.count(OpList)
	if f.BeforeList != nil {
		f.BeforeList(collectionPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.collect(collectionPath, nil), nil
}

// Query implements service.Store.
func (f *FakeStore) Query(ctx context.Context, collectionPath, field string, value any) ([]service.Document, error) {
	f.count(OpQuery)
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.collect(collectionPath, func(fields map[string]any) bool {
		return service.FieldEquals(fields, field, value)
	}), nil
}

// Close implements service.Store.
func (f *FakeStore) Close() error {
	return nil
}

func (f *FakeStore) collect(collectionPath string, match func(map[string]any) bool) []service.Document {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []service.Document
	for path, fields := range f.docs {
		parent, id, err := service.ParentCollection(path)
		if err != nil || parent != collectionPath {
			continue
		}
		if match != nil && !match(fields) {
			continue
		}
		result = append(result, service.Document{ID: id, Path: path, Fields: copyFields(fields)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result
}

func copyFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

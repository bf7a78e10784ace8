package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"todolist/internal/cache"
	"todolist/internal/service"
	"todolist/internal/session"
	"todolist/internal/syncer"
	"todolist/internal/testutil"
)

var (
	due     = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	created = time.Date(2026, 2, 27, 9, 30, 0, 0, time.UTC)
)

func newTask(id string, p service.Priority) service.Task {
	return service.Task{
		ID:          id,
		Title:       "task " + id,
		DueDate:     due,
		CreatedDate: created,
		Priority:    p,
	}
}

type fixture struct {
	co      *syncer.Coordinator
	store   *testutil.FakeStore
	session *session.Memory
	cache   *cache.Cache
	sleeps  []time.Duration
}

func newFixture(t *testing.T, opts syncer.Options) *fixture {
	t.Helper()
	f := &fixture{
		store:   testutil.NewFakeStore(),
		session: session.NewMemory(),
		cache:   cache.New(),
	}
	f.session.SignIn(session.Identity{UserID: "u1", Email: "u1@example.com"})
	if opts.Sleep == nil {
		opts.Sleep = func(ctx context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		}
	}
	f.co = syncer.New(f.store, f.session, f.cache, opts)
	t.Cleanup(f.co.Close)
	return f
}

func TestAddThenFetch_ContainsTaskOnce(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()

	task := newTask("t1", service.PriorityHigh)
	if err := f.co.AddTask(ctx, "u1", task); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	f.cache.Reset("u1")
	got, err := f.co.FetchCollection(ctx, "u1")
	if err != nil {
		t.Fatalf("FetchCollection: %v", err)
	}
	if diff := cmp.Diff([]service.Task{task}, got); diff != "" {
		t.Errorf("fetched tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateThenFetch_ReturnsUpdatedFields(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()

	task := newTask("t1", service.PriorityLow)
	if err := f.co.AddTask(ctx, "u1", task); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	task.Title = "renamed"
	task.Priority = service.PriorityHigh
	if err := f.co.UpdateTask(ctx, "u1", task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	// The cache reflects the update without the caller doing anything.
	cached, _ := f.cache.Task("u1", "t1")
	if cached.Title != "renamed" {
		t.Errorf("cache not reconciled after update: %+v", cached)
	}

	f.cache.Reset("u1")
	got, err := f.co.FetchCollection(ctx, "")
	if err != nil {
		t.Fatalf("FetchCollection: %v", err)
	}
	if diff := cmp.Diff([]service.Task{task}, got); diff != "" {
		t.Errorf("fetched tasks mismatch (-want +got):\n%s", diff)
	}
}

// hookStore runs a callback after the store was read and before the
// result is returned, standing in for a slow response.
type hookStore struct {
	*testutil.FakeStore
	afterList  func()
	afterQuery func()
}

func (s *hookStore) List(ctx context.Context, collectionPath string) ([]service.Document, error) {
	docs, err := s.FakeStore.List(ctx, collectionPath)
	if s.afterList != nil {
		s.afterList()
	}
	return docs, err
}

func (s *hookStore) Query(ctx context.Context, collectionPath, field string, value any) ([]service.Document, error) {
	docs, err := s.FakeStore.Query(ctx, collectionPath, field, value)
	if s.afterQuery != nil {
		s.afterQuery()
	}
	return docs, err
}

func newHookCoordinator(t *testing.T, store *hookStore) (*syncer.Coordinator, *cache.Cache) {
	t.Helper()
	sess := session.NewMemory()
	sess.SignIn(session.Identity{UserID: "u1"})
	c := cache.New()
	co := syncer.New(store, sess, c, syncer.Options{})
	t.Cleanup(co.Close)
	return co, c
}

func TestFetchCollection_WritesDuringReadSurvive(t *testing.T) {
	store := &hookStore{FakeStore: testutil.NewFakeStore()}
	store.PutTask("u1", newTask("old", service.PriorityLow))
	listed := make(chan struct{})
	release := make(chan struct{})
	store.afterList = func() {
		close(listed)
		<-release
	}
	co, _ := newHookCoordinator(t, store)
	ctx := context.Background()

	type result struct {
		tasks []service.Task
		err   error
	}
	fetched := make(chan result, 1)
	go func() {
		tasks, err := co.FetchCollection(ctx, "u1")
		fetched <- result{tasks, err}
	}()

	<-listed
	added := newTask("x", service.PriorityHigh)
	if err := co.AddTask(ctx, "u1", added); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := co.DeleteTask(ctx, "u1", "old"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	close(release)

	res := <-fetched
	if res.err != nil {
		t.Fatalf("FetchCollection: %v", res.err)
	}
	if diff := cmp.Diff([]service.Task{added}, res.tasks); diff != "" {
		t.Errorf("in-flight fetch result (-want +got):\n%s", diff)
	}

	got, err := co.FetchCollection(ctx, "u1")
	if err != nil {
		t.Fatalf("cached FetchCollection: %v", err)
	}
	if diff := cmp.Diff([]service.Task{added}, got); diff != "" {
		t.Errorf("cached collection (-want +got):\n%s", diff)
	}
	if n := store.Calls(testutil.OpList); n != 1 {
		t.Errorf("expected 1 remote read, got %d", n)
	}
}

func TestFilterCollection_WriteDuringQueryIsReconciled(t *testing.T) {
	store := &hookStore{FakeStore: testutil.NewFakeStore()}
	store.PutTask("u1", newTask("A", service.PriorityHigh))
	store.PutTask("u1", newTask("B", service.PriorityHigh))
	co, c := newHookCoordinator(t, store)
	ctx := context.Background()
	if _, err := co.FetchCollection(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	// The query has matched A already when A is demoted.
	demoted := newTask("A", service.PriorityLow)
	store.afterQuery = func() {
		store.afterQuery = nil
		if err := co.UpdateTask(ctx, "u1", demoted); err != nil {
			t.Errorf("UpdateTask: %v", err)
		}
	}

	got, err := co.FilterCollection(ctx, "u1", "priority", "High")
	if err != nil {
		t.Fatalf("FilterCollection: %v", err)
	}
	want := []service.Task{newTask("B", service.PriorityHigh)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("filter result (-want +got):\n%s", diff)
	}
	snap := c.Snapshot()
	if diff := cmp.Diff(want, snap.Tasks); diff != "" {
		t.Errorf("cache view (-want +got):\n%s", diff)
	}
	if a, _ := c.Task("u1", "A"); a.Priority != service.PriorityLow {
		t.Errorf("collection lost the update: %+v", a)
	}
}

func TestAddTask_FailureLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	if _, err := f.co.FetchCollection(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	f.store.SetErr = service.ErrUnavailable
	err := f.co.AddTask(ctx, "u1", newTask("t1", service.PriorityNormal))
	if !errors.Is(err, syncer.ErrRemote) || !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if n := len(f.cache.Snapshot().Tasks); n != 0 {
		t.Errorf("failed add reached the cache: %d tasks", n)
	}
}

func TestAddTask_Validation(t *testing.T) {
	f := newFixture(t, syncer.Options{})

	tests := []struct {
		name string
		task service.Task
	}{
		{"empty id", service.Task{Title: "x", Priority: service.PriorityLow}},
		{"slash in id", service.Task{ID: "a/b", Title: "x", Priority: service.PriorityLow}},
		{"blank title", service.Task{ID: "a", Title: "  ", Priority: service.PriorityLow}},
		{"bad priority", service.Task{ID: "a", Title: "x", Priority: "Urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.co.AddTask(context.Background(), "u1", tt.task)
			if !errors.Is(err, syncer.ErrInvalidTask) {
				t.Errorf("expected ErrInvalidTask, got %v", err)
			}
		})
	}
	if n := f.store.Calls(testutil.OpSet); n != 0 {
		t.Errorf("invalid tasks reached the store: %d sets", n)
	}
}

func TestFetchCollection_CachedAfterFirstRead(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	f.store.PutTask("u1", newTask("a", service.PriorityLow))

	for i := 0; i < 2; i++ {
		got, err := f.co.FetchCollection(ctx, "u1")
		if err != nil {
			t.Fatalf("FetchCollection #%d: %v", i+1, err)
		}
		if len(got) != 1 {
			t.Errorf("FetchCollection #%d returned %d tasks", i+1, len(got))
		}
	}
	if n := f.store.Calls(testutil.OpList); n != 1 {
		t.Errorf("expected exactly 1 remote read, got %d", n)
	}
}

func TestFetchCollection_EmptyIsCached(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.co.FetchCollection(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.store.Calls(testutil.OpList); n != 1 {
		t.Errorf("confirmed-empty collection was read %d times", n)
	}
	if got := f.cache.Snapshot().State; got != cache.Fetched {
		t.Errorf("state = %v, want fetched", got)
	}
}

func TestFetchCollection_SingleFlight(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	f.store.PutTask("u1", newTask("a", service.PriorityLow))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.store.BeforeList = func(string) {
		once.Do(func() { close(entered) })
		<-release
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks, err := f.co.FetchCollection(context.Background(), "u1")
			if err == nil && len(tasks) != 1 {
				err = errors.New("wrong task count")
			}
			errs <- err
		}()
	}

	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("FetchCollection: %v", err)
		}
	}
	if n := f.store.Calls(testutil.OpList); n != 1 {
		t.Errorf("expected 1 remote read for %d concurrent callers, got %d", callers, n)
	}
}

func TestFetchCollection_FailureKeepsCache(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	f.store.PutTask("u1", newTask("a", service.PriorityLow))

	f.store.ListErr = service.ErrUnavailable
	if _, err := f.co.FetchCollection(ctx, "u1"); !errors.Is(err, syncer.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if got := f.cache.Snapshot().State; got != cache.Failed {
		t.Errorf("state = %v, want failed", got)
	}

	f.store.ListErr = nil
	if _, err := f.co.FetchCollection(ctx, "u1"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}

	f.store.ListErr = service.ErrUnavailable
	if _, err := f.co.Refresh(ctx, "u1"); err == nil {
		t.Fatal("expected refresh to fail")
	}
	snap := f.cache.Snapshot()
	if snap.State != cache.Fetched || len(snap.Tasks) != 1 || snap.Err == nil {
		t.Errorf("failed refresh mutated the cache: %+v", snap)
	}
}

func TestFetchCollection_DropsUndecodableDocuments(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	good := newTask("good", service.PriorityNormal)
	f.store.PutTask("u1", good)
	f.store.PutRaw(service.TaskPath("u1", "bad"), map[string]any{"title": 42})

	got, err := f.co.FetchCollection(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FetchCollection: %v", err)
	}
	if diff := cmp.Diff([]service.Task{good}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCallTimeout(t *testing.T) {
	f := newFixture(t, syncer.Options{CallTimeout: 10 * time.Millisecond})
	f.store.BeforeSet = func(string) { time.Sleep(100 * time.Millisecond) }

	err := f.co.AddTask(context.Background(), "u1", newTask("slow", service.PriorityLow))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestFilterCollection_ReplacesActiveView(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	for _, task := range []service.Task{
		newTask("A", service.PriorityLow),
		newTask("B", service.PriorityHigh),
		newTask("C", service.PriorityHigh),
	} {
		f.store.PutTask("u1", task)
	}
	if _, err := f.co.FetchCollection(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	got, err := f.co.FilterCollection(ctx, "u1", "priority", "High")
	if err != nil {
		t.Fatalf("FilterCollection: %v", err)
	}
	want := []service.Task{newTask("B", service.PriorityHigh), newTask("C", service.PriorityHigh)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("filter result mismatch (-want +got):\n%s", diff)
	}

	snap := f.cache.Snapshot()
	if diff := cmp.Diff(want, snap.Tasks); diff != "" {
		t.Errorf("cache view mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Collection) != 3 {
		t.Errorf("unfiltered collection lost: %d tasks", len(snap.Collection))
	}

	// Filters always hit the store.
	if _, err := f.co.FilterCollection(ctx, "u1", "priority", "High"); err != nil {
		t.Fatal(err)
	}
	if n := f.store.Calls(testutil.OpQuery); n != 2 {
		t.Errorf("expected 2 queries, got %d", n)
	}

	if err := f.co.ClearFilter("u1"); err != nil {
		t.Fatal(err)
	}
	if n := len(f.cache.Snapshot().Tasks); n != 3 {
		t.Errorf("view after ClearFilter has %d tasks", n)
	}
}

func TestFilterCollection_UnknownField(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	if _, err := f.co.FilterCollection(context.Background(), "u1", "colour", "red"); err == nil {
		t.Error("expected error for unknown field")
	}
	if n := f.store.Calls(testutil.OpQuery); n != 0 {
		t.Errorf("unknown field reached the store")
	}
}

func TestSetDone(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	f.store.PutTask("u1", newTask("t1", service.PriorityLow))

	// Not cached yet: the task is read from the store.
	task, err := f.co.SetDone(ctx, "u1", "t1", true)
	if err != nil {
		t.Fatalf("SetDone: %v", err)
	}
	if !task.IsDone {
		t.Error("returned task not done")
	}
	fields, _ := f.store.Fields(service.TaskPath("u1", "t1"))
	if fields["isDone"] != true {
		t.Errorf("store not updated: %v", fields)
	}

	if _, err := f.co.SetDone(ctx, "u1", "missing", true); !errors.Is(err, syncer.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestPrecondition_NoIdentity(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	f.session.SignOut()
	ctx := context.Background()

	ops := map[string]func() error{
		"fetch":   func() error { _, err := f.co.FetchCollection(ctx, "u1"); return err },
		"refresh": func() error { _, err := f.co.Refresh(ctx, ""); return err },
		"add":     func() error { return f.co.AddTask(ctx, "u1", newTask("t", service.PriorityLow)) },
		"update":  func() error { return f.co.UpdateTask(ctx, "u1", newTask("t", service.PriorityLow)) },
		"done":    func() error { _, err := f.co.SetDone(ctx, "u1", "t", true); return err },
		"delete":  func() error { return f.co.DeleteTask(ctx, "u1", "t") },
		"filter": func() error {
			_, err := f.co.FilterCollection(ctx, "u1", "priority", "High")
			return err
		},
		"clearFilter":   func() error { return f.co.ClearFilter("u1") },
		"profile":       func() error { _, err := f.co.FetchProfile(ctx, "u1"); return err },
		"saveProfile":   func() error { return f.co.SaveProfile(ctx, "u1", service.UserProfile{}) },
		"deleteAccount": func() error { return f.co.DeleteAccount(ctx, "u1") },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, syncer.ErrPrecondition) {
			t.Errorf("%s: expected ErrPrecondition, got %v", name, err)
		}
	}
	for _, op := range []string{testutil.OpGet, testutil.OpSet, testutil.OpDelete, testutil.OpList, testutil.OpQuery} {
		if n := f.store.Calls(op); n != 0 {
			t.Errorf("%s called %d times without identity", op, n)
		}
	}
}

func TestPrecondition_OtherOwner(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	_, err := f.co.FetchCollection(context.Background(), "u2")
	if !errors.Is(err, syncer.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition, got %v", err)
	}
}

func TestSignOutDuringWrite(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	if _, err := f.co.FetchCollection(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	f.store.BeforeSet = func(string) {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		done <- f.co.AddTask(ctx, "u1", newTask("pending", service.PriorityNormal))
	}()

	<-entered
	f.session.SignOut()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("pending write failed: %v", err)
	}
	if !f.store.Has(service.TaskPath("u1", "pending")) {
		t.Error("pending write was not applied to u1")
	}
	snap := f.cache.Snapshot()
	if snap.Owner != "" || len(snap.Tasks) != 0 {
		t.Errorf("signed-out cache received u1's task: %+v", snap)
	}

	f.store.BeforeSet = nil
	err := f.co.AddTask(ctx, "u1", newTask("late", service.PriorityNormal))
	if !errors.Is(err, syncer.ErrPrecondition) {
		t.Errorf("new operation after sign-out: expected ErrPrecondition, got %v", err)
	}
}

func TestSessionChangeResetsCache(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	f.store.PutTask("u1", newTask("a", service.PriorityLow))
	if _, err := f.co.FetchCollection(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	f.session.SignIn(session.Identity{UserID: "u2"})
	snap := f.cache.Snapshot()
	if snap.Owner != "u2" || snap.State != cache.NotFetched || len(snap.Tasks) != 0 {
		t.Errorf("cache not reset for new identity: %+v", snap)
	}

	got, err := f.co.FetchCollection(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("u2 sees u1's tasks: %v", got)
	}
}

func TestObserversSeeAddBeforeReturn(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	if _, err := f.co.FetchCollection(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	var seen []string
	unsubscribe := f.cache.Subscribe(func(s cache.Snapshot) {
		for _, task := range s.Tasks {
			seen = append(seen, task.ID)
		}
	})
	defer unsubscribe()

	if err := f.co.AddTask(ctx, "u1", newTask("t1", service.PriorityHigh)); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != "t1" {
		t.Errorf("observer saw %v before AddTask returned", seen)
	}
}

func TestProfile(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()

	if _, err := f.co.FetchProfile(ctx, "u1"); !errors.Is(err, syncer.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	profile := service.UserProfile{Name: "Ada", Email: "u1@example.com", Joined: created}
	if err := f.co.SaveProfile(ctx, "u1", profile); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	f.store.ResetCalls()
	got, err := f.co.FetchProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	profile.ID = "u1"
	if diff := cmp.Diff(profile, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
	if n := f.store.Calls(testutil.OpGet); n != 0 {
		t.Errorf("cached profile read remotely %d times", n)
	}

	other := service.UserProfile{ID: "u2", Name: "Eve"}
	if err := f.co.SaveProfile(ctx, "u1", other); !errors.Is(err, syncer.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for foreign profile, got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t, syncer.Options{})
	ctx := context.Background()
	f.store.PutProfile(service.UserProfile{ID: "u1", Name: "Ada", Joined: created})
	f.store.PutTask("u1", newTask("a", service.PriorityLow))
	f.store.PutTask("u1", newTask("b", service.PriorityHigh))
	f.store.PutTask("u2", newTask("c", service.PriorityHigh))

	if err := f.co.DeleteAccount(ctx, "u1"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	for _, path := range []string{
		service.UserPath("u1"),
		service.TaskPath("u1", "a"),
		service.TaskPath("u1", "b"),
	} {
		if f.store.Has(path) {
			t.Errorf("%s still exists", path)
		}
	}
	if !f.store.Has(service.TaskPath("u2", "c")) {
		t.Error("another user's task was deleted")
	}
	if got := f.cache.Snapshot().State; got != cache.NotFetched {
		t.Errorf("cache state = %v after account deletion", got)
	}
}

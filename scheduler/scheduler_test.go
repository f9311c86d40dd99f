package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giygas/vaccination-book-api/data"
	"github.com/giygas/vaccination-book-api/interfaces"
	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
)

// mockView counts refetches
type mockView struct {
	id         string
	childID    string
	refetchErr error
	refetches  atomic.Int32
}

func (m *mockView) ID() string                                { return m.id }
func (m *mockView) ChildID() string                           { return m.childID }
func (m *mockView) Bind(ctx context.Context, id string) error { return nil }
func (m *mockView) Refetch(ctx context.Context) error {
	m.refetches.Add(1)
	return m.refetchErr
}
func (m *mockView) SetSearch(query string)            {}
func (m *mockView) GoToPage(page int) int             { return page }
func (m *mockView) Snapshot() interfaces.ViewSnapshot { return interfaces.ViewSnapshot{ID: m.id} }
func (m *mockView) LastAccess() time.Time             { return time.Now() }

// mockViewStore for testing scheduler
type mockViewStore struct {
	mu          sync.Mutex
	views       []interfaces.BookView
	refreshing  bool
	evictCalls  int
	lastIdle    time.Duration
	lastSuccess time.Time
	startTime   time.Time
}

func (m *mockViewStore) CreateView() interfaces.BookView               { return nil }
func (m *mockViewStore) GetView(id string) (interfaces.BookView, bool) { return nil, false }
func (m *mockViewStore) DeleteView(id string) bool                     { return false }
func (m *mockViewStore) Views() []interfaces.BookView                  { return m.views }

func (m *mockViewStore) EvictIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictCalls++
	m.lastIdle = maxIdle
	return 0
}

func (m *mockViewStore) RecordFetch(err error)          {}
func (m *mockViewStore) GetLastFetchSuccess() time.Time { return m.lastSuccess }
func (m *mockViewStore) GetLastFetchFailure() time.Time { return time.Time{} }
func (m *mockViewStore) GetLastFetchError() string      { return "" }
func (m *mockViewStore) GetServerStartTime() time.Time  { return m.startTime }

func (m *mockViewStore) BeginRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshing {
		return false
	}
	m.refreshing = true
	return true
}

func (m *mockViewStore) EndRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshing = false
}

func (m *mockViewStore) IsRefreshing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshing
}

func TestRefreshViewsRefetchesBoundViews(t *testing.T) {
	bound := &mockView{id: "a", childID: "c1"}
	unbound := &mockView{id: "b"}
	failing := &mockView{id: "c", childID: "c2", refetchErr: errors.New("boom")}
	stale := &mockView{id: "d", childID: "c3", refetchErr: data.ErrStaleResponse}

	store := &mockViewStore{views: []interfaces.BookView{bound, unbound, failing, stale}}
	s := NewScheduler(store, time.Minute, time.Minute, time.Minute, time.Second)

	s.refreshViews()

	if bound.refetches.Load() != 1 || failing.refetches.Load() != 1 || stale.refetches.Load() != 1 {
		t.Error("Every bound view should be refetched once")
	}
	if unbound.refetches.Load() != 0 {
		t.Error("Unbound views should not be refetched")
	}
	if store.IsRefreshing() {
		t.Error("Refresh guard should be released")
	}
}

func TestRefreshViewsSkipsWhileRefreshing(t *testing.T) {
	view := &mockView{id: "a", childID: "c1"}
	store := &mockViewStore{views: []interfaces.BookView{view}, refreshing: true}
	s := NewScheduler(store, time.Minute, time.Minute, time.Minute, time.Second)

	s.refreshViews()

	if view.refetches.Load() != 0 {
		t.Error("Refresh should be skipped while another cycle runs")
	}
	if !store.IsRefreshing() {
		t.Error("Skipped cycle must not release the other cycle's guard")
	}
}

func TestEvictIdleViews(t *testing.T) {
	store := &mockViewStore{}
	s := NewScheduler(store, time.Minute, time.Minute, 30*time.Minute, time.Second)

	s.evictIdleViews()

	if store.evictCalls != 1 || store.lastIdle != 30*time.Minute {
		t.Errorf("Expected one eviction with the idle TTL, got %d calls with %s", store.evictCalls, store.lastIdle)
	}
}

func TestCheckStaleness(t *testing.T) {
	testCases := []struct {
		name        string
		views       []interfaces.BookView
		lastSuccess time.Time
		startTime   time.Time
		expected    bool
	}{
		{"no views", nil, time.Time{}, time.Now().Add(-time.Hour), false},
		{"only unbound views", []interfaces.BookView{&mockView{id: "a"}}, time.Time{}, time.Now().Add(-time.Hour), false},
		{"recent success", []interfaces.BookView{&mockView{id: "a", childID: "c"}}, time.Now(), time.Now().Add(-time.Hour), false},
		{"old success", []interfaces.BookView{&mockView{id: "a", childID: "c"}}, time.Now().Add(-time.Hour), time.Now().Add(-2 * time.Hour), true},
		{"never fetched, fresh start", []interfaces.BookView{&mockView{id: "a", childID: "c"}}, time.Time{}, time.Now(), false},
		{"never fetched, old start", []interfaces.BookView{&mockView{id: "a", childID: "c"}}, time.Time{}, time.Now().Add(-time.Hour), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockViewStore{views: tc.views, lastSuccess: tc.lastSuccess, startTime: tc.startTime}
			s := NewScheduler(store, time.Minute, time.Minute, time.Minute, time.Second)

			if got := s.checkStaleness(); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestSchedulerStartStop(t *testing.T) {
	store := &mockViewStore{}
	s := NewScheduler(store, time.Minute, time.Minute, time.Minute, time.Second)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// WaitForSchedule means nothing runs immediately
	time.Sleep(50 * time.Millisecond)
	store.mu.Lock()
	calls := store.evictCalls
	store.mu.Unlock()
	if calls != 0 {
		t.Errorf("Jobs should wait for their first interval, got %d evictions", calls)
	}

	s.Stop()
	s.Stop()
}

type emptySource struct{}

func (emptySource) FetchRecords(ctx context.Context, childID string) ([]entities.RawDoseRecord, error) {
	return []entities.RawDoseRecord{}, nil
}

func TestRefreshDoesNotKeepIdleViewsAlive(t *testing.T) {
	store := data.NewDataContainer(emptySource{}, nil, 3)
	view := store.CreateView()
	if err := view.Bind(context.Background(), "child-1"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	s := NewScheduler(store, time.Minute, time.Minute, 20*time.Millisecond, time.Second)

	time.Sleep(40 * time.Millisecond)
	s.refreshViews()
	s.evictIdleViews()

	if len(store.Views()) != 0 {
		t.Errorf("Expected the idle view to be evicted after a background refresh, %d left", len(store.Views()))
	}
}

package data

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
)

func newTestContainer() *DataContainer {
	source := sourceFunc(func(ctx context.Context, childID string) ([]entities.RawDoseRecord, error) {
		if childID == "broken" {
			return nil, errors.New("upstream status 500")
		}
		return diseases("Sởi"), nil
	})
	return NewDataContainer(source, nil, 3)
}

func TestNewDataContainer(t *testing.T) {
	dc := newTestContainer()

	if dc.IsRefreshing() {
		t.Error("NewDataContainer should not be refreshing")
	}
	if len(dc.Views()) != 0 {
		t.Error("NewDataContainer should have no views")
	}
	if !dc.GetLastFetchSuccess().IsZero() || !dc.GetLastFetchFailure().IsZero() {
		t.Error("NewDataContainer should have zero fetch times")
	}
	if dc.GetServerStartTime().IsZero() {
		t.Error("Server start time should be set")
	}
}

func TestCreateGetDeleteView(t *testing.T) {
	dc := newTestContainer()

	view := dc.CreateView()
	if view.ID() == "" {
		t.Fatal("View id should not be empty")
	}

	got, ok := dc.GetView(view.ID())
	if !ok || got.ID() != view.ID() {
		t.Fatal("Created view should be retrievable")
	}

	if _, ok := dc.GetView("unknown"); ok {
		t.Error("Unknown id should not be found")
	}

	if !dc.DeleteView(view.ID()) {
		t.Error("DeleteView should report an existing view")
	}
	if dc.DeleteView(view.ID()) {
		t.Error("Deleting twice should report false")
	}
	if _, ok := dc.GetView(view.ID()); ok {
		t.Error("Deleted view should be gone")
	}
}

func TestFetchBookkeeping(t *testing.T) {
	dc := newTestContainer()

	ok := dc.CreateView()
	if err := ok.Bind(context.Background(), "c1"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if dc.GetLastFetchSuccess().IsZero() {
		t.Error("Successful fetch should be recorded")
	}

	broken := dc.CreateView()
	if err := broken.Bind(context.Background(), "broken"); err == nil {
		t.Fatal("Expected fetch error")
	}
	if dc.GetLastFetchFailure().IsZero() {
		t.Error("Failed fetch should be recorded")
	}
	if dc.GetLastFetchError() != "upstream status 500" {
		t.Errorf("Unexpected last error %q", dc.GetLastFetchError())
	}
}

func TestEvictIdle(t *testing.T) {
	dc := newTestContainer()

	stale := dc.CreateView()
	time.Sleep(20 * time.Millisecond)
	fresh := dc.CreateView()

	if evicted := dc.EvictIdle(10 * time.Millisecond); evicted != 1 {
		t.Fatalf("Expected 1 eviction, got %d", evicted)
	}
	if _, ok := dc.GetView(stale.ID()); ok {
		t.Error("Idle view should have been evicted")
	}
	if _, ok := dc.GetView(fresh.ID()); !ok {
		t.Error("Recently used view should be kept")
	}
}

func TestEvictIdleAfterBackgroundRefetch(t *testing.T) {
	dc := newTestContainer()
	ctx := context.Background()

	created := dc.CreateView()
	if err := created.Bind(ctx, "child-1"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	view := created.(*View)
	view.lastAccess.Store(time.Now().Add(-time.Hour).UnixNano())

	if err := view.Refetch(ctx); err != nil {
		t.Fatalf("Refetch failed: %v", err)
	}
	if age := time.Since(view.LastAccess()); age < 59*time.Minute {
		t.Fatalf("Refetch should not refresh the last access time, age %s", age)
	}

	if evicted := dc.EvictIdle(30 * time.Minute); evicted != 1 {
		t.Errorf("Expected the refreshed but unused view to be evicted, got %d", evicted)
	}
}

func TestBeginEndRefresh(t *testing.T) {
	dc := newTestContainer()

	if !dc.BeginRefresh() {
		t.Fatal("First BeginRefresh should succeed")
	}
	if dc.BeginRefresh() {
		t.Error("Second BeginRefresh should fail while refreshing")
	}
	if !dc.IsRefreshing() {
		t.Error("IsRefreshing should be true")
	}

	dc.EndRefresh()
	if dc.IsRefreshing() || !dc.BeginRefresh() {
		t.Error("BeginRefresh should succeed after EndRefresh")
	}
}

func TestConcurrentViewAccess(t *testing.T) {
	dc := newTestContainer()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view := dc.CreateView()
			_ = view.Bind(context.Background(), "c1")
			view.SetSearch("soi")
			_ = view.Snapshot()
			_ = dc.Views()
			dc.DeleteView(view.ID())
		}()
	}
	wg.Wait()

	if len(dc.Views()) != 0 {
		t.Errorf("Expected all views deleted, got %d", len(dc.Views()))
	}
}

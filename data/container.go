// Package data holds the per-client vaccination book views and the upstream
// fetch bookkeeping used for health reporting. Registry access is guarded by a
// RWMutex; bookkeeping uses atomics so health checks never block on fetches.
package data

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/vaccination-book-api/interfaces"
	"github.com/giygas/vaccination-book-api/logging"
	"github.com/giygas/vaccination-book-api/metrics"
	"github.com/google/uuid"
)

// Compile-time check to ensure DataContainer implements ViewStore
var _ interfaces.ViewStore = (*DataContainer)(nil)

// DataContainer is the in-memory registry of views
type DataContainer struct {
	source    interfaces.RecordSource
	validator interfaces.DataValidator
	pageSize  int

	mu    sync.RWMutex
	views map[string]*View

	lastFetchSuccess atomic.Value // time.Time
	lastFetchFailure atomic.Value // time.Time
	lastFetchError   atomic.Value // string
	refreshing       atomic.Bool
	serverStartTime  atomic.Value // time.Time
}

// NewDataContainer creates an empty registry whose views read from source
func NewDataContainer(source interfaces.RecordSource, validator interfaces.DataValidator, pageSize int) *DataContainer {
	dc := &DataContainer{
		source:    source,
		validator: validator,
		pageSize:  pageSize,
		views:     make(map[string]*View),
	}
	dc.lastFetchSuccess.Store(time.Time{})
	dc.lastFetchFailure.Store(time.Time{})
	dc.lastFetchError.Store("")
	dc.serverStartTime.Store(time.Now())
	return dc
}

// CreateView registers a new unbound view under a random id
func (dc *DataContainer) CreateView() interfaces.BookView {
	view := NewView(uuid.NewString(), dc.source, dc.validator, dc.pageSize, dc.RecordFetch)

	dc.mu.Lock()
	dc.views[view.ID()] = view
	count := len(dc.views)
	dc.mu.Unlock()

	metrics.VaccineViewsActive.Set(float64(count))
	logging.Debug("View created", "view_id", view.ID(), "views", count)
	return view
}

// GetView returns the view with the given id
func (dc *DataContainer) GetView(id string) (interfaces.BookView, bool) {
	dc.mu.RLock()
	view, ok := dc.views[id]
	dc.mu.RUnlock()

	if !ok {
		return nil, false
	}
	view.touch()
	return view, true
}

// DeleteView removes a view, reporting whether it existed
func (dc *DataContainer) DeleteView(id string) bool {
	dc.mu.Lock()
	_, ok := dc.views[id]
	delete(dc.views, id)
	count := len(dc.views)
	dc.mu.Unlock()

	if ok {
		metrics.VaccineViewsActive.Set(float64(count))
	}
	return ok
}

// Views returns every registered view in no particular order
func (dc *DataContainer) Views() []interfaces.BookView {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	views := make([]interfaces.BookView, 0, len(dc.views))
	for _, view := range dc.views {
		views = append(views, view)
	}
	return views
}

// EvictIdle removes views not accessed within maxIdle and returns how many were removed
func (dc *DataContainer) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	dc.mu.Lock()
	evicted := 0
	for id, view := range dc.views {
		if view.LastAccess().Before(cutoff) {
			delete(dc.views, id)
			evicted++
		}
	}
	count := len(dc.views)
	dc.mu.Unlock()

	metrics.VaccineViewsActive.Set(float64(count))
	if evicted > 0 {
		logging.Info("Evicted idle views", "evicted", evicted, "remaining", count)
	}
	return evicted
}

// RecordFetch stores the outcome of a committed upstream fetch
func (dc *DataContainer) RecordFetch(err error) {
	if err != nil {
		dc.lastFetchFailure.Store(time.Now())
		dc.lastFetchError.Store(err.Error())
		return
	}
	dc.lastFetchSuccess.Store(time.Now())
}

// Thread-safe getters with type check

// GetLastFetchSuccess returns the time of the last successful fetch, zero if none
func (dc *DataContainer) GetLastFetchSuccess() time.Time {
	if v := dc.lastFetchSuccess.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the last fetch success value")
	return time.Time{}
}

// GetLastFetchFailure returns the time of the last failed fetch, zero if none
func (dc *DataContainer) GetLastFetchFailure() time.Time {
	if v := dc.lastFetchFailure.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the last fetch failure value")
	return time.Time{}
}

// GetLastFetchError returns the message of the last failed fetch
func (dc *DataContainer) GetLastFetchError() string {
	if v := dc.lastFetchError.Load(); v != nil {
		if msg, ok := v.(string); ok {
			return msg
		}
	}
	return ""
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// BeginRefresh marks the start of a refresh cycle.
// Returns false if another cycle is still running.
func (dc *DataContainer) BeginRefresh() bool {
	return dc.refreshing.CompareAndSwap(false, true)
}

// EndRefresh marks the end of a refresh cycle
func (dc *DataContainer) EndRefresh() {
	dc.refreshing.Store(false)
}

// IsRefreshing returns true while a refresh cycle is running
func (dc *DataContainer) IsRefreshing() bool {
	return dc.refreshing.Load()
}

// Package scheduler keeps bound vaccination book views fresh and drops idle ones.
// It refetches every bound view on a fixed interval, evicts views nobody read
// within the idle TTL, and warns when the upstream API stops answering.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/vaccination-book-api/data"
	"github.com/giygas/vaccination-book-api/interfaces"
	"github.com/giygas/vaccination-book-api/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler runs the view refresh and eviction jobs
type Scheduler struct {
	store            interfaces.ViewStore
	refreshInterval  time.Duration
	evictionInterval time.Duration
	idleTTL          time.Duration
	fetchTimeout     time.Duration
	scheduler        *gocron.Scheduler

	stop     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(store interfaces.ViewStore, refreshInterval, evictionInterval, idleTTL, fetchTimeout time.Duration) *Scheduler {
	return &Scheduler{
		store:            store,
		refreshInterval:  refreshInterval,
		evictionInterval: evictionInterval,
		idleTTL:          idleTTL,
		fetchTimeout:     fetchTimeout,
		scheduler:        gocron.NewScheduler(time.Local),
		stop:             make(chan struct{}),
	}
}

// Start schedules the jobs and the staleness monitor
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.refreshInterval).WaitForSchedule().Do(s.refreshViews)
	if err != nil {
		logging.Error("Failed to schedule view refresh", "error", err)
		return fmt.Errorf("failed to schedule view refresh: %w", err)
	}

	_, err = s.scheduler.Every(s.evictionInterval).WaitForSchedule().Do(s.evictIdleViews)
	if err != nil {
		logging.Error("Failed to schedule view eviction", "error", err)
		return fmt.Errorf("failed to schedule view eviction: %w", err)
	}

	s.scheduler.StartAsync()

	s.startHealthMonitoring()

	logging.Info("Scheduler started",
		"refresh_interval", s.refreshInterval.String(),
		"eviction_interval", s.evictionInterval.String(),
		"idle_ttl", s.idleTTL.String())
	return nil
}

// Stop stops the jobs and the monitor
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.scheduler.Stop()
	})
}

// refreshViews refetches every bound view concurrently, skipping if the previous cycle still runs
func (s *Scheduler) refreshViews() {
	// Prevent overlapping cycles
	if !s.store.BeginRefresh() {
		logging.Info("View refresh already in progress, skipping...")
		return
	}
	defer s.store.EndRefresh()

	start := time.Now()
	var wg sync.WaitGroup
	var refreshed, failed atomic.Int32

	for _, view := range s.store.Views() {
		if view.ChildID() == "" {
			continue
		}

		wg.Add(1)
		go func(view interfaces.BookView) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
			defer cancel()

			err := view.Refetch(ctx)
			switch {
			case err == nil:
				refreshed.Add(1)
			case errors.Is(err, data.ErrStaleResponse):
				// A client refetched meanwhile, its result won
			default:
				failed.Add(1)
			}
		}(view)
	}
	wg.Wait()

	if refreshed.Load() > 0 || failed.Load() > 0 {
		logging.Info("View refresh completed",
			"duration", time.Since(start).String(),
			"refreshed", refreshed.Load(),
			"failed", failed.Load())
	}
}

func (s *Scheduler) evictIdleViews() {
	s.store.EvictIdle(s.idleTTL)
}

// checkStaleness warns when bound views exist but nothing was fetched successfully for two refresh intervals
func (s *Scheduler) checkStaleness() bool {
	bound := 0
	for _, view := range s.store.Views() {
		if view.ChildID() != "" {
			bound++
		}
	}
	if bound == 0 {
		return false
	}

	lastSuccess := s.store.GetLastFetchSuccess()
	if lastSuccess.IsZero() {
		lastSuccess = s.store.GetServerStartTime()
	}

	if time.Since(lastSuccess) > 2*s.refreshInterval {
		logging.Warn("No successful upstream fetch recently",
			"since", lastSuccess.Format(time.RFC3339),
			"bound_views", bound,
			"last_error", s.store.GetLastFetchError())
		return true
	}
	return false
}

// startHealthMonitoring checks staleness once per refresh interval until Stop
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.checkStaleness()
			}
		}
	}()
}

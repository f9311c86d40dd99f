// Package health reports service health from the outcome of recent upstream fetches.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/vaccination-book-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store           interfaces.ViewStore
	refreshInterval time.Duration
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(store interfaces.ViewStore, refreshInterval time.Duration) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		store:           store,
		refreshInterval: refreshInterval,
	}
}

// HealthCheck derives the status from the last upstream fetches.
// A failure newer than the last success degrades the service; failures with no
// success for two refresh intervals make it unhealthy.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	lastSuccess := h.store.GetLastFetchSuccess()
	lastFailure := h.store.GetLastFetchFailure()
	startTime := h.store.GetServerStartTime()
	views := len(h.store.Views())

	failing := !lastFailure.IsZero() && lastFailure.After(lastSuccess)

	reference := lastSuccess
	if reference.IsZero() {
		reference = startTime
	}

	switch {
	case failing && time.Since(reference) > 2*h.refreshInterval:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case failing:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"uptime_hours":  math.Round(time.Since(startTime).Hours()*10) / 10,
		"views":         views,
		"is_refreshing": h.store.IsRefreshing(),
	}

	upstream := map[string]any{
		"last_success": formatTime(lastSuccess),
		"last_failure": formatTime(lastFailure),
	}
	if failing {
		upstream["last_error"] = h.store.GetLastFetchError()
	}
	data["upstream"] = upstream

	return status, data, httpStatus
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

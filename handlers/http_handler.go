// Package handlers provides the HTTP handlers of the vaccination book API.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/vaccination-book-api/book"
	"github.com/giygas/vaccination-book-api/data"
	"github.com/giygas/vaccination-book-api/interfaces"
	"github.com/giygas/vaccination-book-api/logging"
	"github.com/giygas/vaccination-book-api/metrics"
	"github.com/giygas/vaccination-book-api/vaccineparser"
	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
	"github.com/go-chi/chi/v5"
)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	store         interfaces.ViewStore
	source        interfaces.RecordSource
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
	pageSize      int
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(store interfaces.ViewStore, source interfaces.RecordSource, validator interfaces.DataValidator,
	healthChecker interfaces.HealthChecker, pageSize int) interfaces.HTTPHandler {
	if pageSize <= 0 {
		pageSize = book.DefaultPageSize
	}
	return &HTTPHandlerImpl{
		store:         store,
		source:        source,
		validator:     validator,
		healthChecker: healthChecker,
		pageSize:      pageSize,
	}
}

// BookResponse is one page of a child's vaccination book
type BookResponse struct {
	ChildID         string                     `json:"childId"`
	Data            []entities.DiseaseSummary  `json:"data"`
	Page            int                        `json:"page"`
	PageSize        int                        `json:"pageSize"`
	TotalItems      int                        `json:"totalItems"`
	MaxPage         int                        `json:"maxPage"`
	Progress        entities.AggregateProgress `json:"progress"`
	CompletionRatio float64                    `json:"completionRatio"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// createViewRequest is the optional body of POST /v1/views
type createViewRequest struct {
	ChildID string `json:"childId"`
}

// updateViewRequest is the body of PATCH /v1/views/{viewId}; absent fields are left unchanged
type updateViewRequest struct {
	ChildID *string `json:"childId"`
	Search  *string `json:"search"`
	Page    *int    `json:"page"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// respondWithFetchError maps an upstream failure to a gateway status
func (h *HTTPHandlerImpl) respondWithFetchError(w http.ResponseWriter, err error) {
	var upstreamErr *vaccineparser.UpstreamError

	switch {
	case errors.As(err, &upstreamErr) && upstreamErr.StatusCode == http.StatusNotFound:
		h.RespondWithError(w, http.StatusNotFound, "Vaccine profile not found")
	case errors.As(err, &upstreamErr):
		h.RespondWithError(w, http.StatusBadGateway, fmt.Sprintf("Upstream service returned status %d", upstreamErr.StatusCode))
	case errors.Is(err, vaccineparser.ErrNotAList):
		h.RespondWithError(w, http.StatusBadGateway, "Upstream service returned an unexpected payload")
	case errors.Is(err, context.DeadlineExceeded):
		h.RespondWithError(w, http.StatusGatewayTimeout, "Upstream service timed out")
	default:
		h.RespondWithError(w, http.StatusBadGateway, "Upstream service unavailable")
	}
}

// decodeBody decodes an optional JSON body; an empty body leaves dst untouched
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ServeVaccinationBook fetches, aggregates, filters and paginates a child's book in one request
func (h *HTTPHandlerImpl) ServeVaccinationBook(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childId")
	if err := h.validator.ValidateChildID(childID); err != nil {
		logging.Warn("Unusual user input", "childId", childID)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	search := query.Get("search")
	if err := h.validator.ValidateSearchQuery(search); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.validator.ValidatePage(query.Get("page"))
	if err != nil {
		logging.Warn("Unusual user input", "page", query.Get("page"))
		h.RespondWithError(w, http.StatusBadRequest, "Invalid page number")
		return
	}

	records, err := h.source.FetchRecords(r.Context(), childID)
	if err != nil {
		logging.Warn("Vaccine profile fetch failed", "child_id", childID, "error", err)
		h.respondWithFetchError(w, err)
		return
	}

	if report := h.validator.ReportDataQuality(records); report.HasIssues() {
		metrics.RecordDataQuality(report)
		logging.Warn("Vaccine profile has data quality issues",
			"child_id", childID, "records", report.TotalRecords, "issues", report.IssueCount())
	}

	full := book.Aggregate(records)
	progress := book.Progress(full)
	current := book.Paginate([]entities.DiseaseSummary(book.Filter(full, search)), page, h.pageSize)

	h.RespondWithJSON(w, http.StatusOK, BookResponse{
		ChildID:         childID,
		Data:            current.Items,
		Page:            current.Page,
		PageSize:        current.PageSize,
		TotalItems:      current.TotalItems,
		MaxPage:         current.MaxPage,
		Progress:        progress,
		CompletionRatio: progress.Ratio(),
	})
}

// fetchContext detaches view fetches from the request so a client disconnect
// does not leave the view with a cancellation error
func fetchContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// CreateView creates a view and binds it when a child id is given.
// A failed fetch still creates the view; the error is part of its snapshot.
func (h *HTTPHandlerImpl) CreateView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.ChildID != "" {
		if err := h.validator.ValidateChildID(req.ChildID); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	view := h.store.CreateView()
	if req.ChildID != "" {
		h.runFetch(view, view.Bind(fetchContext(r), req.ChildID))
	}

	h.RespondWithJSON(w, http.StatusCreated, view.Snapshot())
}

// runFetch logs fetch outcomes that are not already visible in the snapshot
func (h *HTTPHandlerImpl) runFetch(view interfaces.BookView, err error) {
	if err != nil && !errors.Is(err, data.ErrStaleResponse) {
		logging.Debug("View fetch failed", "view_id", view.ID(), "error", err)
	}
}

// lookupView writes a 404 and returns false when the view does not exist
func (h *HTTPHandlerImpl) lookupView(w http.ResponseWriter, r *http.Request) (interfaces.BookView, bool) {
	viewID := chi.URLParam(r, "viewId")
	view, ok := h.store.GetView(viewID)
	if !ok {
		h.RespondWithError(w, http.StatusNotFound, "View not found")
		return nil, false
	}
	return view, true
}

// GetView returns the current snapshot of a view
func (h *HTTPHandlerImpl) GetView(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookupView(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, view.Snapshot())
}

// UpdateView applies childId, then search, then page
func (h *HTTPHandlerImpl) UpdateView(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookupView(w, r)
	if !ok {
		return
	}

	var req updateViewRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	// Validate everything before changing anything
	if req.ChildID != nil && *req.ChildID != "" {
		if err := h.validator.ValidateChildID(*req.ChildID); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Search != nil {
		if err := h.validator.ValidateSearchQuery(*req.Search); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Page != nil {
		if _, err := h.validator.ValidatePage(strconv.Itoa(*req.Page)); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, "Invalid page number")
			return
		}
	}

	if req.ChildID != nil {
		h.runFetch(view, view.Bind(fetchContext(r), *req.ChildID))
	}
	if req.Search != nil {
		view.SetSearch(*req.Search)
	}
	if req.Page != nil {
		view.GoToPage(*req.Page)
	}

	h.RespondWithJSON(w, http.StatusOK, view.Snapshot())
}

// RefetchView re-runs the fetch of the bound child
func (h *HTTPHandlerImpl) RefetchView(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookupView(w, r)
	if !ok {
		return
	}

	h.runFetch(view, view.Refetch(fetchContext(r)))
	h.RespondWithJSON(w, http.StatusOK, view.Snapshot())
}

// DeleteView drops a view
func (h *HTTPHandlerImpl) DeleteView(w http.ResponseWriter, r *http.Request) {
	viewID := chi.URLParam(r, "viewId")
	if !h.store.DeleteView(viewID) {
		h.RespondWithError(w, http.StatusNotFound, "View not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.healthChecker.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.store.GetServerStartTime())

	h.RespondWithJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}

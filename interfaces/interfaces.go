// Package interfaces defines core abstractions for the vaccination book API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
)

// DataQualityReport lists the malformed or inconsistent records of one payload.
// Record positions are indexes into the decoded list.
type DataQualityReport struct {
	TotalRecords          int
	MissingIdentity       []int           // diseaseId or diseaseName absent
	MissingDoseNum        []int           // requiredDoseNum absent or not positive
	MalformedFields       []int           // any other field defaulted during decoding
	UnknownStatuses       []string        // distinct status texts that are not known labels
	DuplicateDoses        []DuplicateDose // same dose number twice within one disease
	ConflictingCompletion []int           // status and completedDoseNum disagree
}

// DuplicateDose is a dose number that appears more than once for one disease
type DuplicateDose struct {
	DiseaseID   string
	DiseaseName string
	DoseNum     int
	Count       int
}

// IssueCount returns the number of findings across all categories
func (r *DataQualityReport) IssueCount() int {
	if r == nil {
		return 0
	}
	return len(r.MissingIdentity) + len(r.MissingDoseNum) + len(r.MalformedFields) +
		len(r.UnknownStatuses) + len(r.DuplicateDoses) + len(r.ConflictingCompletion)
}

// HasIssues reports whether the payload had any finding
func (r *DataQualityReport) HasIssues() bool {
	return r.IssueCount() > 0
}

// RecordSource fetches the raw vaccine profile rows of a child.
// It performs exactly one upstream request per call and does not retry.
type RecordSource interface {
	FetchRecords(ctx context.Context, childID string) ([]entities.RawDoseRecord, error)
}

// ViewSnapshot is an immutable rendering of a view: fetch state, current page and progress
type ViewSnapshot struct {
	ID              string                     `json:"id"`
	ChildID         string                     `json:"childId"`
	Loading         bool                       `json:"loading"`
	Error           string                     `json:"error,omitempty"`
	Search          string                     `json:"search"`
	Data            []entities.DiseaseSummary  `json:"data"`
	Page            int                        `json:"page"`
	PageSize        int                        `json:"pageSize"`
	TotalItems      int                        `json:"totalItems"`
	MaxPage         int                        `json:"maxPage"`
	Progress        entities.AggregateProgress `json:"progress"`
	CompletionRatio float64                    `json:"completionRatio"`
	Generation      uint64                     `json:"generation"`
	LastUpdated     time.Time                  `json:"lastUpdated"`
}

// BookView is the per-client state container of the vaccination book screen.
// Fetch results are committed only if no newer fetch was issued meanwhile.
type BookView interface {
	ID() string
	ChildID() string
	Bind(ctx context.Context, childID string) error
	Refetch(ctx context.Context) error
	SetSearch(query string)
	GoToPage(page int) int
	Snapshot() ViewSnapshot
	LastAccess() time.Time
}

// ViewStore defines the contract for the in-memory view registry.
// It also keeps the upstream fetch bookkeeping used for health reporting.
type ViewStore interface {
	CreateView() BookView
	GetView(id string) (BookView, bool)
	DeleteView(id string) bool
	Views() []BookView
	EvictIdle(maxIdle time.Duration) int

	RecordFetch(err error)
	GetLastFetchSuccess() time.Time
	GetLastFetchFailure() time.Time
	GetLastFetchError() string
	GetServerStartTime() time.Time

	BeginRefresh() bool
	EndRefresh()
	IsRefreshing() bool
}

// Scheduler defines the contract for background jobs
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ServeVaccinationBook(w http.ResponseWriter, r *http.Request)

	CreateView(w http.ResponseWriter, r *http.Request)
	GetView(w http.ResponseWriter, r *http.Request)
	UpdateView(w http.ResponseWriter, r *http.Request)
	RefetchView(w http.ResponseWriter, r *http.Request)
	DeleteView(w http.ResponseWriter, r *http.Request)

	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator defines the contract for input validation and payload quality reporting
type DataValidator interface {
	ValidateChildID(input string) error
	ValidateSearchQuery(input string) error
	ValidatePage(input string) (int, error)
	ReportDataQuality(records []entities.RawDoseRecord) *DataQualityReport
}

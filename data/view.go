package data

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/vaccination-book-api/book"
	"github.com/giygas/vaccination-book-api/interfaces"
	"github.com/giygas/vaccination-book-api/logging"
	"github.com/giygas/vaccination-book-api/metrics"
	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
)

// ErrStaleResponse is returned by a fetch whose result was discarded because
// a newer fetch was issued or the view was bound to another child meanwhile
var ErrStaleResponse = errors.New("stale response discarded")

var _ interfaces.BookView = (*View)(nil)

// View is the state of one vaccination book screen: the bound child, the fetch
// state and the search/page cursor. Only the latest issued fetch may commit.
type View struct {
	id        string
	source    interfaces.RecordSource
	validator interfaces.DataValidator
	onFetch   func(error)

	mu          sync.Mutex
	childID     string
	loading     bool
	err         error
	records     []entities.RawDoseRecord
	book        entities.VaccinationBook
	progress    entities.AggregateProgress
	pager       *book.Pager
	generation  uint64
	lastUpdated time.Time

	lastAccess atomic.Int64 // unix nanoseconds
}

// NewView creates an unbound view. onFetch, when set, receives the outcome of every committed fetch.
func NewView(id string, source interfaces.RecordSource, validator interfaces.DataValidator,
	pageSize int, onFetch func(error)) *View {
	v := &View{
		id:        id,
		source:    source,
		validator: validator,
		onFetch:   onFetch,
		records:   []entities.RawDoseRecord{},
		book:      entities.VaccinationBook{},
		pager:     book.NewPager(pageSize),
	}
	v.touch()
	return v
}

func (v *View) ID() string { return v.id }

func (v *View) ChildID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.childID
}

// LastAccess returns the last time a client read or changed the view
func (v *View) LastAccess() time.Time {
	return time.Unix(0, v.lastAccess.Load())
}

func (v *View) touch() {
	v.lastAccess.Store(time.Now().UnixNano())
}

// Bind selects the child and fetches its records. An empty id does nothing.
// Binding another child drops the previous child's data before fetching.
func (v *View) Bind(ctx context.Context, childID string) error {
	if childID == "" {
		return nil
	}
	v.touch()

	v.mu.Lock()
	if childID != v.childID {
		v.childID = childID
		v.err = nil
		v.records = []entities.RawDoseRecord{}
		v.book = entities.VaccinationBook{}
		v.progress = entities.AggregateProgress{}
		v.pager.Reset()
	}
	v.mu.Unlock()

	return v.fetch(ctx)
}

// Refetch fetches the bound child again. It does nothing while no child is bound.
// It does not count as access.
func (v *View) Refetch(ctx context.Context) error {
	v.mu.Lock()
	bound := v.childID != ""
	v.mu.Unlock()

	if !bound {
		return nil
	}
	return v.fetch(ctx)
}

func (v *View) fetch(ctx context.Context) error {
	v.mu.Lock()
	v.generation++
	generation := v.generation
	childID := v.childID
	v.loading = true
	v.mu.Unlock()

	records, err := v.source.FetchRecords(ctx, childID)

	v.mu.Lock()
	defer v.mu.Unlock()

	if generation != v.generation || childID != v.childID {
		metrics.VaccineFetchDiscarded.Inc()
		logging.Debug("Discarding stale vaccine profile response",
			"view_id", v.id, "child_id", childID, "generation", generation, "latest", v.generation)
		return ErrStaleResponse
	}

	v.loading = false
	v.lastUpdated = time.Now()

	if err != nil {
		v.err = err
		v.records = []entities.RawDoseRecord{}
		v.book = entities.VaccinationBook{}
		v.progress = entities.AggregateProgress{}
		logging.Warn("Vaccine profile fetch failed", "view_id", v.id, "child_id", childID, "error", err)
		v.notify(err)
		return err
	}

	if records == nil {
		records = []entities.RawDoseRecord{}
	}
	v.err = nil
	v.records = records
	v.book = book.Aggregate(records)
	v.progress = book.Progress(v.book)

	v.reportQuality(childID)
	v.notify(nil)
	return nil
}

func (v *View) notify(err error) {
	if v.onFetch != nil {
		v.onFetch(err)
	}
}

// reportQuality logs payload problems; it never changes the committed data
func (v *View) reportQuality(childID string) {
	if v.validator == nil {
		return
	}

	report := v.validator.ReportDataQuality(v.records)
	if !report.HasIssues() {
		return
	}

	metrics.RecordDataQuality(report)
	logging.Warn("Vaccine profile has data quality issues",
		"view_id", v.id,
		"child_id", childID,
		"records", report.TotalRecords,
		"missing_identity", len(report.MissingIdentity),
		"missing_dose_num", len(report.MissingDoseNum),
		"malformed_fields", len(report.MalformedFields),
		"unknown_statuses", report.UnknownStatuses,
		"duplicate_doses", len(report.DuplicateDoses),
		"conflicting_completion", len(report.ConflictingCompletion),
	)
}

// SetSearch changes the disease name filter, returning to page 1 if it changed
func (v *View) SetSearch(query string) {
	v.touch()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.pager.SetQuery(query)
}

// GoToPage moves to page within the filtered book and returns the page selected
func (v *View) GoToPage(page int) int {
	v.touch()

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pager.GoTo(page, len(book.Filter(v.book, v.pager.Query())))
}

// Snapshot renders the current page. Progress always covers the unfiltered book.
func (v *View) Snapshot() interfaces.ViewSnapshot {
	v.touch()

	v.mu.Lock()
	defer v.mu.Unlock()

	page := v.pager.Window(v.book)

	snapshot := interfaces.ViewSnapshot{
		ID:              v.id,
		ChildID:         v.childID,
		Loading:         v.loading,
		Search:          v.pager.Query(),
		Data:            page.Items,
		Page:            page.Page,
		PageSize:        page.PageSize,
		TotalItems:      page.TotalItems,
		MaxPage:         page.MaxPage,
		Progress:        v.progress,
		CompletionRatio: v.progress.Ratio(),
		Generation:      v.generation,
		LastUpdated:     v.lastUpdated,
	}
	if v.err != nil {
		snapshot.Error = v.err.Error()
	}
	return snapshot
}

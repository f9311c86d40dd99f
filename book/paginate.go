package book

import "github.com/giygas/vaccination-book-api/vaccineparser/entities"

// DefaultPageSize is the number of disease cards on one page
const DefaultPageSize = 3

// Page is one slice of a paginated list
type Page[T any] struct {
	Items      []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	MaxPage    int `json:"maxPage"`
}

// TotalPages returns ceil(count/pageSize), 0 for an empty list
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if count <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// ClampPage keeps page within [1, max(totalPages, 1)]
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate returns the requested page of items, clamping out-of-range pages
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := TotalPages(len(items), pageSize)
	page = ClampPage(page, total)

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(items))

	return Page[T]{
		Items:      append(make([]T, 0, end-start), items[start:end]...),
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(items),
		MaxPage:    total,
	}
}

// Pager is the page cursor of one screen. The page resets when the query changes.
// It is not safe for concurrent use.
type Pager struct {
	query    string
	page     int
	pageSize int
}

func NewPager(pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{page: 1, pageSize: pageSize}
}

func (p *Pager) Query() string { return p.query }
func (p *Pager) Page() int     { return p.page }
func (p *Pager) PageSize() int { return p.pageSize }

// SetQuery stores the search text and returns to page 1 if it changed
func (p *Pager) SetQuery(query string) {
	if query == p.query {
		return
	}
	p.query = query
	p.page = 1
}

// GoTo moves to page, clamped against totalItems, and returns the page actually selected
func (p *Pager) GoTo(page, totalItems int) int {
	p.page = ClampPage(page, TotalPages(totalItems, p.pageSize))
	return p.page
}

func (p *Pager) Next(totalItems int) int { return p.GoTo(p.page+1, totalItems) }
func (p *Pager) Prev(totalItems int) int { return p.GoTo(p.page-1, totalItems) }

// Reset goes back to page 1 keeping the query
func (p *Pager) Reset() {
	p.page = 1
}

// Window filters b by the current query and returns the current page, re-clamping the cursor
func (p *Pager) Window(b entities.VaccinationBook) Page[entities.DiseaseSummary] {
	page := Paginate([]entities.DiseaseSummary(Filter(b, p.query)), p.page, p.pageSize)
	p.page = page.Page
	return page
}

package pagination

import "math"

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 200
)

// Params is a normalized page request. Build it with New.
type Params struct {
	Page    int
	PerPage int
}

// New clamps page and perPage to valid ranges.
func New(page, perPage int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// clampInt32 safely converts int to int32 with clamping.
// This is the single place where int→int32 conversion is suppressed,
// keeping gosec G115 enabled globally to catch unsafe casts elsewhere.
func clampInt32(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v) // #nosec G115 -- bounds checked above
}

// LimitOffset returns safe int32 limit and offset for SQL queries.
func (p Params) LimitOffset() (limit, offset int32) {
	n := New(p.Page, p.PerPage)
	return clampInt32(n.PerPage), clampInt32((n.Page - 1) * n.PerPage)
}

// Window returns the [start, end) slice bounds of this page over n items.
func (p Params) Window(n int) (start, end int) {
	limit, offset := p.LimitOffset()
	start = min(int(offset), n)
	end = min(start+int(limit), n)
	return start, end
}

// TotalPages calculates total number of pages.
func TotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	tp := int(total) / perPage
	if int(total)%perPage != 0 {
		tp++
	}
	return tp
}

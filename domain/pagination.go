package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination describes one offset-based page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}

// NewPagination normalizes page/limit and computes the page count for total.
func NewPagination(page, limit, total int) Pagination {
	page, limit = NormalizePage(page, limit)
	return Pagination{
		Page:  page,
		Limit: limit,
		Pages: PageCount(total, limit),
		Total: total,
	}
}

// NormalizePage clamps page to >= 1 and limit to [1, MaxPageSize], using
// DefaultPageSize when limit is not positive.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Offset returns the number of rows to skip for page.
func Offset(page, limit int) int {
	page, limit = NormalizePage(page, limit)
	return (page - 1) * limit
}

// PageCount is ceil(total/limit).
func PageCount(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// TaskList is a page of tasks plus its pagination metadata.
type TaskList struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

package shared

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is an offset window over an ordered result set
type Page struct {
	Limit  int
	Offset int
}

// NewPage normalizes limit and offset: non-positive limits fall back to the
// default and oversize limits are capped.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page Page) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}

// HasMore reports whether another page exists after this one
func (p Paginated[T]) HasMore() bool {
	return int64(p.Offset+len(p.Items)) < p.Total
}

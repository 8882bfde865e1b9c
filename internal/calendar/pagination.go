package calendar

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"` // 1-based
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_prev"`
	Total    int  `json:"total"`
}

const (
	// DefaultPageSize applies when the caller passes no page size.
	DefaultPageSize = 20
	// MaxPageSize caps page sizes requested by callers.
	MaxPageSize = 200
)

// NormalizePage clamps a requested page and page size to the allowed range.
func NormalizePage(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}

// NewPage wraps one page of items fetched with limit/offset out of total.
func NewPage[T any](items []T, page, pageSize, total int) Page[T] {
	page, pageSize = NormalizePage(page, pageSize)
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasNext:  (page-1)*pageSize+len(items) < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}

// Paginate returns the requested 1-based page of items. Out-of-range values
// fall back to defaults.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)
	page, pageSize = NormalizePage(page, pageSize)

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	pageItems := make([]T, 0, end-start)
	pageItems = append(pageItems, items[start:end]...)

	return NewPage(pageItems, page, pageSize, total)
}

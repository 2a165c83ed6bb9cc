package store

type OffsetPage[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paginate slices items into 1-based pages. Out-of-range arguments fall back
// to the first page and the default size.
func Paginate[T any](items []T, page, pageSize int) *OffsetPage[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	total := len(items)
	totalPages := total / pageSize
	if total%pageSize > 0 {
		totalPages++
	}

	// Compare pages before multiplying so a huge page cannot overflow.
	start := total
	if page <= totalPages {
		start = (page - 1) * pageSize
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &OffsetPage[T]{
		Items:      append([]T{}, items[start:end]...),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

package listing

// Page is one fixed-size slice of a larger collection.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// Paginate slices items into fixed-size pages and returns the requested page.
// A page number beyond the last page yields an empty page, not an error; an
// empty input yields TotalPages == 0. Out-of-range arguments are clamped to
// their minimums (pageSize 1, pageNumber 1). Callers that change the upstream
// filter are responsible for resetting pageNumber to 1.
func Paginate[T any](items []T, pageSize, pageNumber int) Page[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	if pageNumber < 1 {
		pageNumber = 1
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	start := (pageNumber - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page[T]{
		Items:      items[start:end],
		Page:       pageNumber,
		TotalPages: totalPages,
		TotalItems: total,
	}
}

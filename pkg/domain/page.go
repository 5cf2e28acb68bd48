package domain

// PageRequest selects one page of a filtered query
type PageRequest struct {
	Page int // zero-based
	Size int
}

// Normalize applies defaults for unset paging values
func (p PageRequest) Normalize() PageRequest {
	if p.Size <= 0 {
		p.Size = 20
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

// Page is one page of query results plus pagination metadata
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

// NewPage builds a page from a full sorted result set
func NewPage[T any](all []T, req PageRequest) Page[T] {
	req = req.Normalize()
	start := req.Page * req.Size
	if start > len(all) {
		start = len(all)
	}
	end := start + req.Size
	if end > len(all) {
		end = len(all)
	}
	return Page[T]{
		Items: all[start:end],
		Total: int64(len(all)),
		Page:  req.Page,
		Size:  req.Size,
	}
}

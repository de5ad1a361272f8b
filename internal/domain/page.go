package domain

// Page is one window of an ordered result set.
type Page[T any] struct {
	Content       []T   `json:"content"`
	PageNumber    int   `json:"pageNumber"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
}

func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.TotalElements + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// TotalUnknown marks a CachedPage whose count has not been queried yet.
const TotalUnknown int64 = -1

// CachedPage is the accumulated prefix of a catalog listing for one
// (search, sort) key. Items only ever grow; Version increases with every store.
type CachedPage struct {
	Version int64         `json:"version"`
	Total   int64         `json:"total"`
	Items   []ItemListDto `json:"items"`
}

func EmptyCachedPage() CachedPage {
	return CachedPage{Total: TotalUnknown, Items: []ItemListDto{}}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package occurrence

// DefaultLimit is the page size when the caller gives none.
const DefaultLimit = 100

// Window is one page of a fully resolved result list.
type Window[T any] struct {
	Items  []T
	Offset int
	Limit  int

	// Total is the length of the list before windowing.
	Total int
}

// Paginate returns items[offset:offset+limit] clamped to the list. A
// negative offset counts as 0 and a non-positive limit as DefaultLimit.
// Items keep their input order.
func Paginate[T any](items []T, offset, limit int) Window[T] {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	w := Window[T]{Offset: offset, Limit: limit, Total: len(items), Items: []T{}}
	if offset >= len(items) {
		return w
	}
	end := len(items)
	if limit < end-offset {
		end = offset + limit
	}
	w.Items = items[offset:end]
	return w
}

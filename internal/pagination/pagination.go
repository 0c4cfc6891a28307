// Package pagination windows ordered collections into offset/limit pages.
package pagination

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

var (
	ErrInvalidLimit  = errors.New("limit must be a positive integer")
	ErrInvalidOffset = errors.New("offset must be a non-negative integer")
	ErrInvalidSort   = errors.New("sort must be one of album, date-asc, date-desc")
)

// Sort names a stable ordering.
type Sort string

const (
	SortAlbum    Sort = "album"
	SortDateAsc  Sort = "date-asc"
	SortDateDesc Sort = "date-desc"
)

// ParseSort validates s. Empty means SortAlbum.
func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case "":
		return SortAlbum, nil
	case SortAlbum, SortDateAsc, SortDateDesc:
		return Sort(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
}

// Limits bounds the page size.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns the stock page size bounds.
func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, Max: MaxLimit}
}

// Request is a validated page request.
type Request struct {
	Offset int
	Limit  int
	Sort   Sort
}

// ParseRequest reads limit, offset and sort from query. Absent values take
// defaults; oversized limits are clamped; malformed values are errors.
func ParseRequest(query url.Values, limits Limits) (Request, error) {
	if limits.Default <= 0 {
		limits.Default = DefaultLimit
	}
	if limits.Max <= 0 {
		limits.Max = MaxLimit
	}

	req := Request{Limit: limits.Default}

	if s := query.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Request{}, ErrInvalidLimit
		}
		if n > 0 {
			req.Limit = n
		}
	}
	req.Limit = min(max(req.Limit, 1), limits.Max)

	if s := query.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Request{}, ErrInvalidOffset
		}
		req.Offset = n
	}

	sort, err := ParseSort(query.Get("sort"))
	if err != nil {
		return Request{}, err
	}
	req.Sort = sort

	return req, nil
}

// Page is one window of an ordered collection. Offset+len(Items) never
// exceeds Total.
type Page[T any] struct {
	Items  []T
	Offset int
	Limit  int
	Total  int
	Sort   Sort
}

// HasMore reports whether items remain past this page.
func (p Page[T]) HasMore() bool {
	return p.Offset+len(p.Items) < p.Total
}

// Keys extracts the fields a date sort needs.
type Keys[T any] struct {
	Date func(T) time.Time
	ID   func(T) string
}

// Paginate orders items by req.Sort and returns the requested window. items
// must already be in the store's native order; SortAlbum keeps it. The input
// slice is not modified.
func Paginate[T any](items []T, req Request, keys Keys[T]) Page[T] {
	ordered := Order(items, req.Sort, keys)

	total := len(ordered)
	page := Page[T]{Offset: req.Offset, Limit: req.Limit, Total: total, Sort: req.Sort, Items: []T{}}
	if req.Offset >= total || req.Limit <= 0 {
		return page
	}
	end := min(req.Offset+req.Limit, total)
	page.Items = ordered[req.Offset:end]
	return page
}

// Order returns a copy of items in the given sort order. Dates tie-break on
// ID so repeated requests see the same order.
func Order[T any](items []T, sort Sort, keys Keys[T]) []T {
	out := slices.Clone(items)
	if sort == SortAlbum || sort == "" || keys.Date == nil {
		return out
	}

	slices.SortStableFunc(out, func(a, b T) int {
		c := keys.Date(a).Compare(keys.Date(b))
		if sort == SortDateDesc {
			c = -c
		}
		if c != 0 || keys.ID == nil {
			return c
		}
		return cmp.Compare(keys.ID(a), keys.ID(b))
	})
	return out
}

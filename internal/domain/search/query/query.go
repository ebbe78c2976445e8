// Package query defines the canonical venue search query and its normalizer.
// A Query is built once per request from raw string parameters and is
// immutable afterwards.
package query

import (
	"sort"
	"strings"
	"time"
)

// Sort is a venue sort field.
type Sort string

// Allowed sort fields.
const (
	SortPrice     Sort = "price"
	SortCapacity  Sort = "capacity"
	SortCreatedAt Sort = "createdAt"
)

// IsValid reports whether the sort field is one of the fixed enumeration.
func (s Sort) IsValid() bool {
	switch s {
	case SortPrice, SortCapacity, SortCreatedAt:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction string

// Allowed sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// IsValid reports whether the direction is asc or desc.
func (d Direction) IsValid() bool { return d == Asc || d == Desc }

// Pagination limits.
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// DateLayout is the accepted calendar date format for availability filtering.
const DateLayout = "2006-01-02"

// Query is a validated, canonical venue search query.
type Query struct {
	text      string
	city      string
	minGuests *int
	minPrice  *int
	maxPrice  *int
	date      *time.Time
	amenities []string
	sortBy    Sort
	sortDir   Direction
	page      int
	limit     int
}

// Text returns the free-text term ("" when absent).
func (q *Query) Text() string { return q.text }

// City returns the exact-match city filter ("" when absent).
func (q *Query) City() string { return q.city }

// MinGuests returns the guest-capacity lower bound.
func (q *Query) MinGuests() (int, bool) {
	if q.minGuests == nil {
		return 0, false
	}
	return *q.minGuests, true
}

// MinPrice returns the price lower bound.
func (q *Query) MinPrice() (int, bool) {
	if q.minPrice == nil {
		return 0, false
	}
	return *q.minPrice, true
}

// MaxPrice returns the price upper bound.
func (q *Query) MaxPrice() (int, bool) {
	if q.maxPrice == nil {
		return 0, false
	}
	return *q.maxPrice, true
}

// Date returns the desired availability date. Only the relational fallback
// honors it; the engine has no availability concept.
func (q *Query) Date() (time.Time, bool) {
	if q.date == nil {
		return time.Time{}, false
	}
	return *q.date, true
}

// Amenities returns the deduplicated, sorted amenity set.
func (q *Query) Amenities() []string { return q.amenities }

// SortBy returns the sort field.
func (q *Query) SortBy() Sort { return q.sortBy }

// SortDir returns the sort direction.
func (q *Query) SortDir() Direction { return q.sortDir }

// Page returns the 1-based page number.
func (q *Query) Page() int { return q.page }

// Limit returns the page size.
func (q *Query) Limit() int { return q.limit }

// Offset returns the row offset implied by page and limit.
func (q *Query) Offset() int { return (q.page - 1) * q.limit }

// normalizeAmenities flattens possibly comma-delimited values into a
// deduplicated, sorted set of trimmed, non-empty strings.
func normalizeAmenities(values []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	sort.Strings(out)
	return out
}

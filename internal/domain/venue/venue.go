// Package venue defines the relational venue row and its search-engine
// document projection. The row is the source of truth; the document is a
// derived, eventually-consistent copy maintained by the reindex pipeline.
package venue

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Venue is a venue row as stored in PostgreSQL.
type Venue struct {
	ID          string
	Name        string
	City        string
	State       string
	Capacity    int
	Price       int
	Amenities   []string
	Description string
	Rating      float64
	CreatedAt   time.Time
}

// Document is the engine-side projection of a venue: flat string fields
// suitable for a redis hash behind a full-text index.
type Document struct {
	ID          string
	Name        string
	City        string
	State       string
	Capacity    int
	Price       int
	Amenities   []string
	Description string
	Rating      float64
	CreatedAtMs int64
}

// Project converts a venue row into its engine document. The projection is
// deterministic: the same row always yields the same document, which is what
// makes reindexing idempotent and safe to retry.
func Project(v Venue) Document {
	amenities := make([]string, 0, len(v.Amenities))
	for _, a := range v.Amenities {
		a = strings.TrimSpace(a)
		if a != "" {
			amenities = append(amenities, a)
		}
	}
	sort.Strings(amenities)

	return Document{
		ID:          v.ID,
		Name:        v.Name,
		City:        v.City,
		State:       v.State,
		Capacity:    v.Capacity,
		Price:       v.Price,
		Amenities:   amenities,
		Description: v.Description,
		Rating:      v.Rating,
		CreatedAtMs: v.CreatedAt.UnixMilli(),
	}
}

// Fields renders the document as hash fields for the engine store.
// Amenities are joined with commas to match the TAG separator of the index.
func (d Document) Fields() map[string]string {
	return map[string]string{
		"id":          d.ID,
		"name":        d.Name,
		"city":        d.City,
		"state":       d.State,
		"capacity":    strconv.Itoa(d.Capacity),
		"price":       strconv.Itoa(d.Price),
		"amenities":   strings.Join(d.Amenities, ","),
		"description": d.Description,
		"rating":      strconv.FormatFloat(d.Rating, 'f', -1, 64),
		"created_at":  strconv.FormatInt(d.CreatedAtMs, 10),
	}
}

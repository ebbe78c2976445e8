package search

import (
	"context"

	"github.com/mandapcloud/venuesearch/internal/db"
	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
	"github.com/mandapcloud/venuesearch/internal/domain/search/result"
	"github.com/mandapcloud/venuesearch/internal/domain/venue"
)

// Engine is the optional full-text engine contract. A nil Engine means the
// dependency is not configured.
type Engine interface {
	EnsureIndex(ctx context.Context) error
	UpsertDocuments(ctx context.Context, items []db.DocumentItem) (failed int, err error)
	Search(ctx context.Context, q *db.EngineQuery) (*db.SearchPage, error)
}

// VenueStore is the relational venue store contract: the fallback query path
// and the row stream feeding reindex.
type VenueStore interface {
	Search(ctx context.Context, q *query.Query) (result.Result, error)
	EachVenue(ctx context.Context, fn func(venue.Venue) error) error
}

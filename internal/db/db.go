// Package db defines the contracts for the two optional external stores:
// the full-text search engine and the job broker. Both are represented as
// injected capabilities that may be nil when unconfigured; callers centralize
// the "is this configured" check instead of scattering existence tests.
package db

import (
	"context"
	"time"

	"github.com/mandapcloud/venuesearch/internal/domain/reindex"
	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
)

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SearchHit is one engine match: the venue hash fields as stored.
type SearchHit struct {
	Key    string
	Fields map[string]string
}

// SearchPage is a raw engine result page.
type SearchPage struct {
	Total int
	Hits  []SearchHit
}

// Engine is the full-text search engine store.
type Engine interface {
	Pinger
	// EnsureIndex creates the venue index if it does not exist yet.
	EnsureIndex(ctx context.Context) error
	// UpsertDocuments writes document hashes, reporting per-item failures
	// without aborting; the error is non-nil only when the whole batch was
	// unreachable.
	UpsertDocuments(ctx context.Context, items []DocumentItem) (failed int, err error)
	// Search runs a translated venue query.
	Search(ctx context.Context, q *EngineQuery) (*SearchPage, error)
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// DocumentItem is one venue document keyed for the engine store.
type DocumentItem struct {
	ID     string
	Fields map[string]string
}

// EngineQuery is a venue query translated for the engine. Date-based
// availability is deliberately absent: the engine has no availability model.
type EngineQuery struct {
	Text      string
	City      string
	Amenities []string
	MinGuests *int
	MinPrice  *int
	MaxPrice  *int
	SortBy    query.Sort
	SortDir   query.Direction
	Offset    int
	Limit     int
}

// Broker is the job broker store backing the reindex queue.
type Broker interface {
	Pinger
	// Enqueue pushes a job onto the queue.
	Enqueue(ctx context.Context, job reindex.Job) error
	// Dequeue pops the oldest job; ok is false when the queue is empty.
	Dequeue(ctx context.Context) (job reindex.Job, ok bool, err error)
	// ParkFailed retains a job that exhausted its attempts for operator
	// inspection.
	ParkFailed(ctx context.Context, job reindex.Job) error
	// TryAcquire sets the dedup key for a target; false means an equivalent
	// job is already pending.
	TryAcquire(ctx context.Context, target string, ttl time.Duration) (bool, error)
	// Release clears the dedup key for a target.
	Release(ctx context.Context, target string) error
	Close()
}

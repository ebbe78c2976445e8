package reindex

import (
	"context"
	"time"

	domreindex "github.com/mandapcloud/venuesearch/internal/domain/reindex"
)

// Reindexer runs one bulk reindex pass. Implemented by the search service.
type Reindexer interface {
	ReindexAll(ctx context.Context) (domreindex.Summary, error)
}

// Broker is the queue store contract the runner and worker consume.
type Broker interface {
	Enqueue(ctx context.Context, job domreindex.Job) error
	Dequeue(ctx context.Context) (job domreindex.Job, ok bool, err error)
	ParkFailed(ctx context.Context, job domreindex.Job) error
	TryAcquire(ctx context.Context, target string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, target string) error
}

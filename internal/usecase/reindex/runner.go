// Package reindex decides how a reindex request executes: queued through the
// broker when one is configured, inline otherwise. Callers see a single
// Runner interface and branch only on the Outcome shape.
package reindex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mandapcloud/venuesearch/internal/domain"
	domreindex "github.com/mandapcloud/venuesearch/internal/domain/reindex"
)

// pendingTTL bounds how long the dedup key survives a crashed worker.
const pendingTTL = 15 * time.Minute

// Outcome reports how a reindex request was handled. Queued=true means the
// job was accepted for asynchronous execution and Summary is empty;
// Queued=false means the run completed inline and Summary holds its counts.
type Outcome struct {
	Queued  bool
	Target  string
	Summary domreindex.Summary
}

// Runner executes or enqueues a reindex request for a target.
type Runner interface {
	Run(ctx context.Context, target string) (Outcome, error)
}

// QueuedRunner enqueues jobs onto the broker for the worker to consume.
type QueuedRunner struct {
	broker Broker
	logger *zap.Logger
}

// NewQueuedRunner creates a broker-backed runner.
func NewQueuedRunner(broker Broker, logger *zap.Logger) *QueuedRunner {
	return &QueuedRunner{broker: broker, logger: logger}
}

// Run enqueues a job for the target. An equivalent pending job makes this a
// no-op that still reports queued: reindexing is idempotent, so collapsing
// duplicates loses nothing.
func (r *QueuedRunner) Run(ctx context.Context, target string) (Outcome, error) {
	if !domreindex.ValidTarget(target) {
		return Outcome{}, fmt.Errorf("%w: %q", domain.ErrUnknownTarget, target)
	}

	acquired, err := r.broker.TryAcquire(ctx, target, pendingTTL)
	if err != nil {
		return Outcome{}, fmt.Errorf("acquire pending slot: %w", err)
	}
	if !acquired {
		r.logger.Info("reindex already pending, skipping enqueue", zap.String("target", target))
		return Outcome{Queued: true, Target: target}, nil
	}

	job := domreindex.NewJob(target)
	if err := r.broker.Enqueue(ctx, job); err != nil {
		_ = r.broker.Release(ctx, target)
		return Outcome{}, fmt.Errorf("enqueue job: %w", err)
	}

	r.logger.Info("reindex job queued",
		zap.String("job_id", job.ID),
		zap.String("target", target),
	)
	return Outcome{Queued: true, Target: target}, nil
}

// InlineRunner executes the reindex synchronously within the caller's
// request. Selected at composition time when no broker is configured.
type InlineRunner struct {
	reindexer Reindexer
	logger    *zap.Logger
}

// NewInlineRunner creates an inline runner.
func NewInlineRunner(reindexer Reindexer, logger *zap.Logger) *InlineRunner {
	return &InlineRunner{reindexer: reindexer, logger: logger}
}

// Run executes the reindex and returns its summary immediately.
func (r *InlineRunner) Run(ctx context.Context, target string) (Outcome, error) {
	if !domreindex.ValidTarget(target) {
		return Outcome{}, fmt.Errorf("%w: %q", domain.ErrUnknownTarget, target)
	}

	r.logger.Info("running reindex inline", zap.String("target", target))
	summary, err := r.reindexer.ReindexAll(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Queued: false, Target: target, Summary: summary}, nil
}

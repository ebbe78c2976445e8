package reindex

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mandapcloud/venuesearch/internal/domain"
	domreindex "github.com/mandapcloud/venuesearch/internal/domain/reindex"
	"github.com/mandapcloud/venuesearch/internal/metrics"
)

// defaultPollInterval is how long an idle worker sleeps between queue polls.
const defaultPollInterval = time.Second

// Worker consumes reindex jobs from the broker and drives them through
// retry/backoff. Several workers may run concurrently: the reindex operation
// is idempotent, so duplicated execution costs work but never corrupts data.
type Worker struct {
	broker       Broker
	reindexer    Reindexer
	logger       *zap.Logger
	maxAttempts  int
	backoffBase  time.Duration
	pollInterval time.Duration
}

// NewWorker creates a queue worker.
func NewWorker(broker Broker, reindexer Reindexer, logger *zap.Logger,
	maxAttempts int, backoffBase time.Duration) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoffBase <= 0 {
		backoffBase = 2 * time.Second
	}
	return &Worker{
		broker:       broker,
		reindexer:    reindexer,
		logger:       logger,
		maxAttempts:  maxAttempts,
		backoffBase:  backoffBase,
		pollInterval: defaultPollInterval,
	}
}

// WithPollInterval configures the idle poll interval.
func (w *Worker) WithPollInterval(d time.Duration) *Worker {
	if d > 0 {
		w.pollInterval = d
	}
	return w
}

// Run polls the queue until ctx is cancelled. One job is in flight per
// worker slot at a time.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, ok, err := w.broker.Dequeue(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			w.logger.Error("dequeue failed", zap.Error(err))
			if !sleepCtx(ctx, w.pollInterval) {
				return
			}
			continue
		case !ok:
			if !sleepCtx(ctx, w.pollInterval) {
				return
			}
			continue
		}

		w.process(ctx, job)
	}
}

// process runs one job to success, terminal failure, or cancellation.
func (w *Worker) process(ctx context.Context, job domreindex.Job) {
	for attempt := job.Attempts + 1; ; attempt++ {
		summary, err := w.reindexer.ReindexAll(ctx)
		if err == nil {
			// Success removes the job entirely; only the dedup key needs
			// releasing so the next admin request can enqueue again.
			w.release(job.Target)
			metrics.ReindexJobsTotal.WithLabelValues("succeeded").Inc()
			w.logger.Info("reindex job succeeded",
				zap.String("job_id", job.ID),
				zap.Int("attempt", attempt),
				zap.Int("indexed", summary.Indexed),
				zap.Int("failed", summary.Failed),
			)
			return
		}

		job.Attempts = attempt
		job.LastError = err.Error()

		// A missing engine cannot heal by retrying.
		terminal := attempt >= w.maxAttempts || errors.Is(err, domain.ErrEngineDisabled)
		if terminal {
			w.park(job, err)
			return
		}

		metrics.ReindexJobsTotal.WithLabelValues("retried").Inc()
		delay := domreindex.Backoff(w.backoffBase, attempt)
		w.logger.Warn("reindex attempt failed, backing off",
			zap.String("job_id", job.ID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if !sleepCtx(ctx, delay) {
			// Shutting down mid-job: park it so the request is not lost.
			w.park(job, ctx.Err())
			return
		}
	}
}

// park retains a job that will not be retried again.
func (w *Worker) park(job domreindex.Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.broker.ParkFailed(ctx, job); err != nil {
		w.logger.Error("failed to park job", zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := w.broker.Release(ctx, job.Target); err != nil {
		w.logger.Error("failed to release pending slot", zap.String("target", job.Target), zap.Error(err))
	}

	metrics.ReindexJobsTotal.WithLabelValues("failed").Inc()
	w.logger.Error("reindex job parked after final failure",
		zap.String("job_id", job.ID),
		zap.Int("attempts", job.Attempts),
		zap.Error(cause),
	)
}

func (w *Worker) release(target string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.broker.Release(ctx, target); err != nil {
		w.logger.Error("failed to release pending slot", zap.String("target", target), zap.Error(err))
	}
}

// sleepCtx sleeps for d, returning false if ctx was cancelled first. The
// timer is stopped on both branches so no timer leaks either way.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

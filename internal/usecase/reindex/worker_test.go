package reindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mandapcloud/venuesearch/internal/domain"
	domreindex "github.com/mandapcloud/venuesearch/internal/domain/reindex"
)

func newTestWorker(broker Broker, reindexer Reindexer) *Worker {
	return NewWorker(broker, reindexer, zap.NewNop(), 3, time.Millisecond)
}

func TestWorker_ProcessSuccess(t *testing.T) {
	broker := &mockBroker{}
	reindexer := &mockReindexer{summary: domreindex.Summary{Indexed: 10}}
	w := newTestWorker(broker, reindexer)

	w.process(context.Background(), domreindex.NewJob(domreindex.TargetVenues))

	if reindexer.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", reindexer.calls)
	}
	if len(broker.parked) != 0 {
		t.Errorf("successful job must not be parked, got %v", broker.parked)
	}
	if len(broker.released) != 1 {
		t.Errorf("expected dedup slot released once, got %v", broker.released)
	}
}

func TestWorker_RetriesThenSucceeds(t *testing.T) {
	broker := &mockBroker{}
	reindexer := &mockReindexer{
		errs:    []error{errors.New("flaky"), errors.New("flaky"), nil},
		summary: domreindex.Summary{Indexed: 5},
	}
	w := newTestWorker(broker, reindexer)

	w.process(context.Background(), domreindex.NewJob(domreindex.TargetVenues))

	if reindexer.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", reindexer.calls)
	}
	if len(broker.parked) != 0 {
		t.Errorf("recovered job must not be parked, got %v", broker.parked)
	}
}

func TestWorker_ParksAfterAttemptCeiling(t *testing.T) {
	broker := &mockBroker{}
	reindexer := &mockReindexer{
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down"), errors.New("down")},
	}
	w := newTestWorker(broker, reindexer)

	w.process(context.Background(), domreindex.NewJob(domreindex.TargetVenues))

	if reindexer.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", reindexer.calls)
	}
	if len(broker.parked) != 1 {
		t.Fatalf("expected job parked, got %d", len(broker.parked))
	}
	parked := broker.parked[0]
	if parked.Attempts != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", parked.Attempts)
	}
	if parked.LastError == "" {
		t.Error("expected last error recorded on the parked job")
	}
	if len(broker.released) != 1 {
		t.Errorf("expected dedup slot released after parking, got %v", broker.released)
	}
}

func TestWorker_EngineDisabledIsTerminal(t *testing.T) {
	broker := &mockBroker{}
	reindexer := &mockReindexer{errs: []error{domain.ErrEngineDisabled}}
	w := newTestWorker(broker, reindexer)

	w.process(context.Background(), domreindex.NewJob(domreindex.TargetVenues))

	if reindexer.calls != 1 {
		t.Errorf("a missing engine must not be retried, got %d attempts", reindexer.calls)
	}
	if len(broker.parked) != 1 {
		t.Errorf("expected job parked immediately, got %d", len(broker.parked))
	}
}

func TestWorker_ResumesAttemptCountFromJob(t *testing.T) {
	broker := &mockBroker{}
	reindexer := &mockReindexer{errs: []error{errors.New("down"), errors.New("down")}}
	w := newTestWorker(broker, reindexer)

	job := domreindex.NewJob(domreindex.TargetVenues)
	job.Attempts = 2

	w.process(context.Background(), job)

	// One attempt (the third) reaches the ceiling.
	if reindexer.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", reindexer.calls)
	}
	if len(broker.parked) != 1 {
		t.Errorf("expected job parked, got %d", len(broker.parked))
	}
}

func TestWorker_CancellationParksInFlightJob(t *testing.T) {
	broker := &mockBroker{}
	reindexer := &mockReindexer{errs: []error{errors.New("down")}}
	w := NewWorker(broker, reindexer, zap.NewNop(), 3, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.process(ctx, domreindex.NewJob(domreindex.TargetVenues))

	if len(broker.parked) != 1 {
		t.Errorf("expected in-flight job parked on shutdown, got %d", len(broker.parked))
	}
}

func TestWorker_RunDrainsQueueUntilCancelled(t *testing.T) {
	broker := &mockBroker{dequeueJobs: []domreindex.Job{
		domreindex.NewJob(domreindex.TargetVenues),
		domreindex.NewJob(domreindex.TargetVenues),
	}}
	reindexer := &mockReindexer{summary: domreindex.Summary{Indexed: 1}}
	w := newTestWorker(broker, reindexer).WithPollInterval(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if reindexer.calls != 2 {
		t.Errorf("expected both jobs processed, got %d", reindexer.calls)
	}
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/mandapcloud/venuesearch/internal/db"
	"github.com/mandapcloud/venuesearch/internal/domain/reindex"
)

// Compile-time check: Broker implements db.Broker.
var _ db.Broker = (*Broker)(nil)

// Queue keys.
const (
	queueKey      = "reindex:queue"
	failedKey     = "reindex:failed"
	pendingPrefix = "reindex:pending:"
)

// Broker is the Redis-backed reindex job queue store. Jobs travel through
// the queue list as JSON; jobs that exhaust their attempts are parked on the
// failed list instead of being dropped.
type Broker struct {
	*client
}

// NewBroker creates a broker store.
func NewBroker(cfg Config) (*Broker, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Broker{client: c}, nil
}

// Enqueue pushes a job onto the queue.
func (b *Broker) Enqueue(ctx context.Context, job reindex.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	cmd := b.b().Lpush().Key(queueKey).Element(string(data)).Build()
	if err := b.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpLPush, Err: err}
	}
	return nil
}

// Dequeue pops the oldest job from the queue. ok is false when empty.
func (b *Broker) Dequeue(ctx context.Context) (reindex.Job, bool, error) {
	cmd := b.b().Rpop().Key(queueKey).Build()
	data, err := b.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return reindex.Job{}, false, nil
		}
		return reindex.Job{}, false, &db.Error{Op: db.OpRPop, Err: err}
	}

	var job reindex.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return reindex.Job{}, false, fmt.Errorf("unmarshal job: %w", err)
	}
	return job, true, nil
}

// ParkFailed retains a terminally failed job for manual inspection.
func (b *Broker) ParkFailed(ctx context.Context, job reindex.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	cmd := b.b().Lpush().Key(failedKey).Element(string(data)).Build()
	if err := b.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpLPush, Err: err}
	}
	return nil
}

// TryAcquire sets the dedup key for a target with SET NX. A false return
// means an equivalent job is already pending and enqueueing should be
// skipped. The TTL bounds how long a crashed worker can hold the slot.
func (b *Broker) TryAcquire(ctx context.Context, target string, ttl time.Duration) (bool, error) {
	cmd := b.b().Set().Key(pendingPrefix + target).Value("1").Nx().Ex(ttl).Build()
	err := b.do(ctx, cmd).Error()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil // NX miss: key already held
		}
		return false, &db.Error{Op: db.OpSet, Err: err}
	}
	return true, nil
}

// Release clears the dedup key for a target.
func (b *Broker) Release(ctx context.Context, target string) error {
	cmd := b.b().Del().Key(pendingPrefix + target).Build()
	if err := b.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

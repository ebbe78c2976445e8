// Package reindex defines the reindex job model shared by the queue and its
// worker.
package reindex

import (
	"time"

	"github.com/google/uuid"
)

// TargetVenues is the only reindex target today.
const TargetVenues = "venues"

// ValidTarget reports whether the target is a known reindex target.
func ValidTarget(target string) bool { return target == TargetVenues }

// Job is one queued reindex request. Jobs are deleted on success and parked
// in a failed state after the attempt ceiling, never silently dropped.
type Job struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
}

// NewJob creates a job for the given target.
func NewJob(target string) Job {
	return Job{
		ID:        uuid.NewString(),
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}
}

// Summary is the outcome of one bulk reindex run. A per-item failure is
// counted, not fatal; Indexed+Failed equals the venue count at run time.
type Summary struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// Backoff returns the delay before the given retry attempt (1-based),
// doubling from base: base, 2*base, 4*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Package health aggregates bounded-time probes of all external dependencies
// into one composite status.
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all probed components are operational.
	Healthy Status = "ok"
	// Degraded indicates the database or a configured optional dependency
	// is failing while the process itself remains responsive.
	Degraded Status = "degraded"
)

// ProbeStatus is an individual dependency probe outcome.
type ProbeStatus string

const (
	// ProbeOK indicates a passing probe.
	ProbeOK ProbeStatus = "ok"
	// ProbeError indicates a failing or timed-out probe.
	ProbeError ProbeStatus = "error"
	// ProbeSkipped indicates the dependency is not configured. Skipped
	// dependencies never degrade the composite status.
	ProbeSkipped ProbeStatus = "skipped"
)

// Probe is one dependency's bounded-time outcome.
type Probe struct {
	Status    ProbeStatus
	LatencyMs int64
}

// Report aggregates all probe results. Computed fresh on every check.
type Report struct {
	Status    Status
	DB        Probe
	Broker    Probe
	Engine    Probe
	Timestamp time.Time
	LatencyMs int64
}

// DefaultProbeTimeout bounds each individual dependency probe.
const DefaultProbeTimeout = 800 * time.Millisecond

// Service coordinates dependency probes. The database is mandatory; broker
// and engine may be nil, in which case they report skipped.
type Service struct {
	dbStore Pinger
	broker  Pinger
	engine  Pinger
	timeout time.Duration
}

// New creates a health service. broker and engine can be nil.
func New(dbStore, broker, engine Pinger) *Service {
	return &Service{
		dbStore: dbStore,
		broker:  broker,
		engine:  engine,
		timeout: DefaultProbeTimeout,
	}
}

// WithProbeTimeout configures the per-probe timeout.
func (s *Service) WithProbeTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check probes every dependency concurrently, each bounded by the probe
// timeout, so total latency tracks the slowest single probe rather than the
// sum. Check itself never fails: whatever happens to the dependencies, the
// report comes back.
func (s *Service) Check(ctx context.Context) Report {
	start := time.Now()

	var (
		wg                       sync.WaitGroup
		dbRes, brokerRes, engRes Probe
	)

	wg.Add(3)
	go func() { defer wg.Done(); dbRes = s.probe(ctx, s.dbStore) }()
	go func() { defer wg.Done(); brokerRes = s.probe(ctx, s.broker) }()
	go func() { defer wg.Done(); engRes = s.probe(ctx, s.engine) }()
	wg.Wait()

	status := Healthy
	if dbRes.Status == ProbeError || brokerRes.Status == ProbeError || engRes.Status == ProbeError {
		status = Degraded
	}

	return Report{
		Status:    status,
		DB:        dbRes,
		Broker:    brokerRes,
		Engine:    engRes,
		Timestamp: time.Now().UTC(),
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// probe races one dependency ping against the probe timeout. The timeout's
// cancel runs on every branch, so no timer survives the probe; a ping that
// outlives the deadline is marked error and abandoned to its context.
func (s *Service) probe(ctx context.Context, p Pinger) Probe {
	if p == nil {
		return Probe{Status: ProbeSkipped}
	}

	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Ping(pctx) }()

	select {
	case err := <-done:
		status := ProbeOK
		if err != nil {
			status = ProbeError
		}
		return Probe{Status: status, LatencyMs: time.Since(start).Milliseconds()}
	case <-pctx.Done():
		return Probe{Status: ProbeError, LatencyMs: time.Since(start).Milliseconds()}
	}
}

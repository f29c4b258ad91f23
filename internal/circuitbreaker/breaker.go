// Package circuitbreaker stops dispatching after repeated transport failures.
//
// Only failures of the HTTP exchange itself count. A domain error from the
// exchange means the network path works and is recorded as a success.
package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"

	"cfkit/pkg/core"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	FailThreshold    int           `json:"fail_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	Timeout          time.Duration `json:"timeout"`
}

// FromConfig returns a breaker for cfg, or nil when the breaker is disabled.
func FromConfig(cfg *core.Config) *Breaker {
	if cfg == nil || !cfg.CircuitBreakerEnabled {
		return nil
	}
	return New(Config{
		FailThreshold:    cfg.CircuitBreakerFailThreshold,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
	})
}

// Breaker is a three-state circuit breaker. State transitions happen under
// a mutex; counters are atomics so snapshots never block.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time

	failThreshold    int
	successThreshold int
	timeout          time.Duration
	now              func() time.Time

	metrics *Metrics
}

type Metrics struct {
	totalRequests    atomic.Int64
	rejectedRequests atomic.Int64
	successRequests  atomic.Int64
	failedRequests   atomic.Int64
	stateChanges     atomic.Int32
}

func New(config Config) *Breaker {
	return &Breaker{
		state:            StateClosed,
		failThreshold:    config.FailThreshold,
		successThreshold: config.SuccessThreshold,
		timeout:          config.Timeout,
		now:              time.Now,
		metrics:          &Metrics{},
	}
}

// Allow returns core.ErrCircuitOpen while the breaker is open. Once the
// open timeout has passed the breaker moves to half-open and lets calls
// through as trial calls.
func (b *Breaker) Allow() error {
	b.metrics.totalRequests.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.timeout {
			b.metrics.rejectedRequests.Add(1)
			return core.ErrCircuitOpen
		}
		b.transitionLocked(StateHalfOpen)
	}
	return nil
}

// Record feeds the outcome of one call into the state machine.
func (b *Breaker) Record(success bool) {
	if success {
		b.metrics.successRequests.Add(1)
	} else {
		b.metrics.failedRequests.Add(1)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.failThreshold {
			b.tripLocked()
		}
	case StateHalfOpen:
		if !success {
			b.tripLocked()
			return
		}
		b.successes++
		if b.successes >= b.successThreshold {
			b.transitionLocked(StateClosed)
		}
	case StateOpen:
		// Outcomes of calls admitted before the trip are ignored.
	}
}

// RecordError classifies err and records it. Only transport errors count
// as failures.
func (b *Breaker) RecordError(err error) {
	b.Record(err == nil || !core.IsTransportError(err))
}

func (b *Breaker) tripLocked() {
	b.openedAt = b.now()
	b.transitionLocked(StateOpen)
}

func (b *Breaker) transitionLocked(newState State) {
	if b.state == newState {
		return
	}
	b.state = newState
	b.failures = 0
	b.successes = 0
	b.metrics.stateChanges.Add(1)
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Metrics returns the request counters along with the current state and
// the run of failures or half-open successes counted towards the next
// transition.
func (b *Breaker) Metrics() MetricsSnapshot {
	b.mu.Lock()
	state, failures, successes := b.state, b.failures, b.successes
	b.mu.Unlock()

	return MetricsSnapshot{
		TotalRequests:        b.metrics.totalRequests.Load(),
		RejectedRequests:     b.metrics.rejectedRequests.Load(),
		SuccessRequests:      b.metrics.successRequests.Load(),
		FailedRequests:       b.metrics.failedRequests.Load(),
		StateChanges:         b.metrics.stateChanges.Load(),
		ConsecutiveFailures:  failures,
		ConsecutiveSuccesses: successes,
		CurrentState:         state.String(),
	}
}

type MetricsSnapshot struct {
	TotalRequests        int64  `json:"total_requests"`
	RejectedRequests     int64  `json:"rejected_requests"`
	SuccessRequests      int64  `json:"success_requests"`
	FailedRequests       int64  `json:"failed_requests"`
	StateChanges         int32  `json:"state_changes"`
	ConsecutiveFailures  int    `json:"consecutive_failures"`
	ConsecutiveSuccesses int    `json:"consecutive_successes"`
	CurrentState         string `json:"current_state"`
}

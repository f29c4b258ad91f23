// Package ratelimit spaces outbound requests of one client instance.
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum interval between two dispatches across all
// goroutines sharing it. Reading the last dispatch time, waiting out the
// remainder and recording the new time form one critical section.
type Limiter struct {
	interval time.Duration
	slot     chan struct{}
	last     time.Time
	budget   *rate.Limiter
	requests int
	period   time.Duration
	metrics  *Metrics

	// observe receives every recorded dispatch time while the slot is held.
	observe func(time.Time)
}

// Metrics tracks statistics about limiter usage.
type Metrics struct {
	totalRequests      atomic.Int64
	dispatchedRequests atomic.Int64
	cancelledRequests  atomic.Int64
	waitNanos          atomic.Int64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithBudget adds an allowance of requests per period on top of the
// minimum interval. Non-positive values leave the budget disabled.
func WithBudget(requests int, period time.Duration) Option {
	return func(l *Limiter) {
		if requests <= 0 || period <= 0 {
			return
		}
		rps := float64(requests) / period.Seconds()
		l.budget = rate.NewLimiter(rate.Limit(rps), requests)
		l.requests = requests
		l.period = period
	}
}

// New creates a Limiter spacing dispatches at least interval apart.
// A non-positive interval disables spacing.
func New(interval time.Duration, opts ...Option) *Limiter {
	if interval < 0 {
		interval = 0
	}
	l := &Limiter{
		interval: interval,
		slot:     make(chan struct{}, 1),
		metrics:  &Metrics{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until the caller may dispatch. The wait is the interval
// minus the time elapsed since the previous dispatch, clamped at zero.
// If ctx ends first Acquire returns its error and records nothing.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.metrics.totalRequests.Add(1)
	start := time.Now()

	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		l.metrics.cancelledRequests.Add(1)
		return ctx.Err()
	}
	defer func() { <-l.slot }()

	if l.budget != nil {
		if err := l.budget.Wait(ctx); err != nil {
			l.metrics.cancelledRequests.Add(1)
			return err
		}
	}

	if !l.last.IsZero() {
		if wait := l.interval - time.Since(l.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				l.metrics.cancelledRequests.Add(1)
				return ctx.Err()
			}
		}
	}

	now := time.Now()
	l.last = now
	if l.observe != nil {
		l.observe(now)
	}

	l.metrics.dispatchedRequests.Add(1)
	l.metrics.waitNanos.Add(int64(now.Sub(start)))
	return nil
}

// Metrics returns a snapshot of the current limiter statistics.
func (l *Limiter) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests:      l.metrics.totalRequests.Load(),
		DispatchedRequests: l.metrics.dispatchedRequests.Load(),
		CancelledRequests:  l.metrics.cancelledRequests.Load(),
		TotalWait:          time.Duration(l.metrics.waitNanos.Load()),
		BudgetRequests:     l.requests,
		BudgetPeriod:       l.period,
	}
}

// MetricsSnapshot is a point-in-time capture of limiter statistics.
type MetricsSnapshot struct {
	// TotalRequests is the number of Acquire calls.
	TotalRequests int64
	// DispatchedRequests is the number of calls that were let through.
	DispatchedRequests int64
	// CancelledRequests is the number of calls abandoned by their context.
	CancelledRequests int64
	// TotalWait is the summed time dispatched callers spent blocked.
	TotalWait time.Duration

	BudgetRequests int
	BudgetPeriod   time.Duration
}

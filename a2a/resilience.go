package a2a

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// CircuitBreaker guards calls to a single remote agent. After Threshold
// consecutive failures the breaker opens and rejects calls with
// ErrCircuitOpen; once Cooldown has elapsed a single probe call is let
// through, closing the breaker on success or reopening it on failure.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a closed breaker. A threshold below one disables
// tripping entirely.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a call may proceed, transitioning from open to
// half-open once the cooldown has elapsed.
func (b *CircuitBreaker) Allow() bool {
	if b == nil || b.threshold < 1 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = breakerHalfOpen
			return true
		}
		return false
	default: // half-open: one probe in flight, hold further calls
		return false
	}
}

// Record feeds the outcome of a call back into the breaker.
func (b *CircuitBreaker) Record(err error) {
	if b == nil || b.threshold < 1 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
	}
}

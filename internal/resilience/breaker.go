// Package resilience guards outbound calls to Supabase and the model
// gateway. Both sit on the request path, so a dead upstream must fail fast
// instead of tying up handlers for the full client timeout.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	circuitClosed = iota
	circuitOpen
	circuitHalfOpen
)

// Breaker is a consecutive-failure circuit breaker. After maxFailures
// failures in a row it rejects calls for the cooldown period, then lets a
// single probe through; the probe's outcome decides whether it closes again.
type Breaker struct {
	mu          sync.Mutex
	circuit     int
	streak      int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	clock       func() time.Time
}

// NewBreaker creates a Breaker tripping after maxFailures consecutive
// failures and cooling down for timeout before probing again.
func NewBreaker(maxFailures int, timeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    timeout,
		clock:       time.Now,
	}
}

// Execute runs fn unless the circuit is open, in which case it returns
// ErrCircuitOpen without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}

	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.circuit == circuitOpen {
		if b.clock().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.circuit = circuitHalfOpen
	}
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.streak = 0
		b.circuit = circuitClosed
		return
	}

	b.streak++
	// A half-open probe failure reopens immediately.
	if b.circuit == circuitHalfOpen || b.streak >= b.maxFailures {
		b.circuit = circuitOpen
		b.openedAt = b.clock()
	}
}

// Package resilience protects outbound calls to unreliable dependencies
// with a circuit breaker and exponential-backoff retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// invoking the wrapped function.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State of a circuit breaker.
type State int

const (
	// StateClosed allows calls through.
	StateClosed State = iota
	// StateOpen rejects calls until the open timeout elapses.
	StateOpen
	// StateHalfOpen lets a trial call through to probe recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds circuit breaker thresholds.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens the circuit.
	FailureThreshold int
	// OpenTimeout is how long the circuit stays open before a trial call.
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns the standard thresholds for AI dependencies.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, OpenTimeout: 60 * time.Second}
}

// Breaker is a circuit breaker for one named external dependency. A single
// shared instance guards all calls to that dependency; transitions are
// mutex-protected.
type Breaker struct {
	name string
	cfg  BreakerConfig

	// now is injectable for tests.
	now func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultBreakerConfig().OpenTimeout
	}
	return &Breaker{
		name:  name,
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset restores the breaker to its initial closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.lastFailure = time.Time{}
}

// Call executes fn under circuit breaker protection. While the circuit is
// open, calls are rejected with ErrCircuitOpen and fn is never invoked.
// Once the open timeout has elapsed since the last failure, the next call
// runs as a half-open trial: success closes the circuit and clears the
// failure count, failure reopens it.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	b.afterCall(err)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.lastFailure.IsZero() || b.now().Sub(b.lastFailure) < b.cfg.OpenTimeout {
			log.Printf("circuit %s: open, rejecting call", b.name)
			return fmt.Errorf("circuit %q: %w", b.name, ErrCircuitOpen)
		}
		log.Printf("circuit %s: attempting reset (half-open)", b.name)
		b.state = StateHalfOpen
	}
	return nil
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		// Only a successful half-open trial clears accumulated failures;
		// successes during normal closed operation leave the counter alone.
		if b.state == StateHalfOpen {
			log.Printf("circuit %s: trial call succeeded, closing circuit", b.name)
			b.state = StateClosed
			b.failures = 0
			b.lastFailure = time.Time{}
		}
		return
	}

	b.failures++
	b.lastFailure = b.now()
	log.Printf("circuit %s: failure %d/%d: %v", b.name, b.failures, b.cfg.FailureThreshold, err)

	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = StateOpen
		log.Printf("circuit %s: opened", b.name)
	}
}

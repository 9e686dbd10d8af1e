// Package circuitbreaker guards calls to an unreliable dependency with the
// classic CLOSED / OPEN / HALF_OPEN state machine.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// State is CLOSED, OPEN or HALF_OPEN.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

type Config struct {
	Name string
	// FailureThreshold consecutive failures while CLOSED trip the breaker.
	FailureThreshold int
	// SuccessThreshold consecutive successes while HALF_OPEN close it.
	SuccessThreshold int
	// ResetTimeout is how long OPEN lasts before a trial request is let through.
	ResetTimeout time.Duration
}

// DefaultConfig opens after 5 failures and retries after 60s.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     60 * time.Second,
	}
}

type Metrics struct {
	Name          string     `json:"name"`
	State         State      `json:"state"`
	FailureCount  int        `json:"failure_count"`
	SuccessCount  int        `json:"success_count"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
}

type Option func(*Breaker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// WithStateChange registers a hook called (outside the lock) on every transition.
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// Breaker is safe for concurrent use. One instance is meant to be shared by
// every caller of the guarded dependency.
type Breaker struct {
	cfg           Config
	now           func() time.Time
	onStateChange func(name string, from, to State)

	mu           sync.Mutex
	state        State
	failureCount int
	successCount int
	nextAttempt  time.Time
}

// New creates a closed breaker.
func New(cfg Config, opts ...Option) *Breaker {
	defaults := DefaultConfig(cfg.Name)
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = defaults.SuccessThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaults.ResetTimeout
	}

	b := &Breaker{
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute runs fn unless the breaker is OPEN, in which case ErrOpen is
// returned without calling fn. fn's error is returned unchanged.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := fn(ctx)
	b.after(err == nil)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()

	if b.state != StateOpen {
		b.mu.Unlock()
		return nil
	}

	if b.now().Before(b.nextAttempt) {
		b.mu.Unlock()
		return ErrOpen
	}

	from := b.transition(StateHalfOpen)
	b.successCount = 0
	b.mu.Unlock()

	b.notify(from, StateHalfOpen)
	return nil
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()

	from := b.state
	to := b.state

	if success {
		b.failureCount = 0
		if b.state == StateHalfOpen {
			b.successCount++
			if b.successCount >= b.cfg.SuccessThreshold {
				b.transition(StateClosed)
				b.successCount = 0
				to = StateClosed
			}
		}
	} else {
		b.failureCount++
		switch b.state {
		case StateHalfOpen:
			b.trip()
			to = StateOpen
		case StateClosed:
			if b.failureCount >= b.cfg.FailureThreshold {
				b.trip()
				to = StateOpen
			}
		}
	}

	b.mu.Unlock()

	if from != to {
		b.notify(from, to)
	}
}

// trip must be called with mu held.
func (b *Breaker) trip() {
	b.transition(StateOpen)
	b.successCount = 0
	b.nextAttempt = b.now().Add(b.cfg.ResetTimeout)
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) State {
	from := b.state
	b.state = to
	return from
}

func (b *Breaker) notify(from, to State) {
	if b.onStateChange != nil && from != to {
		b.onStateChange(b.cfg.Name, from, to)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := Metrics{
		Name:         b.cfg.Name,
		State:        b.state,
		FailureCount: b.failureCount,
		SuccessCount: b.successCount,
	}
	if b.state == StateOpen {
		next := b.nextAttempt
		m.NextAttemptAt = &next
	}
	return m
}

// Reset forces the breaker back to CLOSED with zeroed counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.transition(StateClosed)
	b.failureCount = 0
	b.successCount = 0
	b.nextAttempt = time.Time{}
	b.mu.Unlock()

	b.notify(from, StateClosed)
}

// Package circuitbreaker guards outbound calls to flaky upstreams. After a
// run of consecutive failures the breaker opens and sheds load until a
// cooldown passes, then probes with a limited number of trial requests.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type Config struct {
	// MaxRequests caps concurrent-ish trial calls while half-open.
	MaxRequests uint32
	// Interval resets the failure streak while closed; zero disables.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold uint32
	Logger           *zap.Logger
}

type CircuitBreaker struct {
	name   string
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	state         State
	failureStreak uint32
	successStreak uint32
	trialRequests uint32
	deadline      time.Time
}

func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 2
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: logger,
	}
	if cfg.Interval > 0 {
		cb.deadline = time.Now().Add(cfg.Interval)
	}
	return cb
}

// Execute runs fn if the breaker admits the call. A panic inside fn counts
// as a failure before re-panicking.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.record(false)
			panic(r)
		}
	}()

	err := fn()
	cb.record(err == nil)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.advance(now)

	switch cb.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.trialRequests >= cb.cfg.MaxRequests {
			return ErrTooManyRequests
		}
		cb.trialRequests++
	}
	return nil
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.advance(now)

	// Free the trial slot so sequential probes are not starved.
	if cb.state == StateHalfOpen && cb.trialRequests > 0 {
		cb.trialRequests--
	}

	if success {
		cb.failureStreak = 0
		cb.successStreak++
		if cb.state == StateHalfOpen && cb.successStreak >= cb.cfg.SuccessThreshold {
			cb.transition(StateClosed, now)
		}
		return
	}

	cb.successStreak = 0
	cb.failureStreak++

	switch cb.state {
	case StateClosed:
		if cb.failureStreak >= cb.cfg.FailureThreshold {
			cb.transition(StateOpen, now)
		}
	case StateHalfOpen:
		// A single failed probe re-opens.
		cb.transition(StateOpen, now)
	}
}

// advance applies timer-driven transitions. Callers hold the lock.
func (cb *CircuitBreaker) advance(now time.Time) {
	switch cb.state {
	case StateOpen:
		if now.After(cb.deadline) {
			cb.transition(StateHalfOpen, now)
		}
	case StateClosed:
		if cb.cfg.Interval > 0 && !cb.deadline.IsZero() && now.After(cb.deadline) {
			cb.failureStreak = 0
			cb.deadline = now.Add(cb.cfg.Interval)
		}
	}
}

func (cb *CircuitBreaker) transition(next State, now time.Time) {
	if cb.state == next {
		return
	}

	prev := cb.state
	cb.state = next
	cb.successStreak = 0
	cb.trialRequests = 0

	switch next {
	case StateOpen:
		cb.deadline = now.Add(cb.cfg.Timeout)
	case StateClosed:
		cb.failureStreak = 0
		if cb.cfg.Interval > 0 {
			cb.deadline = now.Add(cb.cfg.Interval)
		} else {
			cb.deadline = time.Time{}
		}
	default:
		cb.deadline = time.Time{}
	}

	cb.logger.Info("Circuit breaker state changed",
		zap.String("name", cb.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advance(time.Now())
	return cb.state
}

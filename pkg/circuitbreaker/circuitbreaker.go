// Package circuitbreaker stops calling a failing dependency for a cool-down period.
// The Redis-backed rate limiter uses it to fall back to its in-memory twin while Redis is down.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

type CircuitState int

const (
	Closed CircuitState = iota
	Open
	// HalfOpen admits a single probe at a time until SuccessThreshold probes pass.
	HalfOpen
)

var stateNames = [...]string{Closed: "closed", Open: "open", HalfOpen: "half-open"}

func (s CircuitState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen is returned without calling the guarded function.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreaker interface {
	Call(func() error) error
	State() CircuitState
	Reset()
}

type Config struct {
	FailureThreshold int           // consecutive failures that open the circuit
	RecoveryTimeout  time.Duration // time spent open before probing
	SuccessThreshold int           // probe successes that close it again
	// OnStateChange runs after every transition, outside the breaker's lock.
	OnStateChange func(from, to CircuitState)
}

func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 2,
	}
}

type circuitBreaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	successes int
	openUntil time.Time
	probing   bool
}

// NewCircuitBreaker applies defaults when config is nil.
func NewCircuitBreaker(config *Config) CircuitBreaker {
	return newCircuitBreaker(config, time.Now)
}

func newCircuitBreaker(config *Config, now func() time.Time) *circuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}

	cfg := *config
	cfg.FailureThreshold = max(cfg.FailureThreshold, 1)
	cfg.SuccessThreshold = max(cfg.SuccessThreshold, 1)

	return &circuitBreaker{cfg: cfg, now: now}
}

func (cb *circuitBreaker) Call(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}

	callErr := fn()
	cb.settle(probe, callErr == nil)

	return callErr
}

func (cb *circuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()

	var changed func()
	if cb.state == Open && !cb.now().Before(cb.openUntil) {
		changed = cb.transition(HalfOpen)
	}

	switch cb.state {
	case Open:
		err = ErrCircuitOpen
	case HalfOpen:
		if cb.probing {
			err = ErrCircuitOpen
		} else {
			cb.probing = true
			probe = true
		}
	}

	cb.mu.Unlock()

	if changed != nil {
		changed()
	}

	return probe, err
}

func (cb *circuitBreaker) settle(probe, ok bool) {
	cb.mu.Lock()

	if probe {
		cb.probing = false
	}

	var changed func()
	switch {
	case ok && cb.state == HalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			changed = cb.transition(Closed)
		}
	case ok:
		cb.failures = 0
	case cb.state == HalfOpen:
		changed = cb.transition(Open)
	default:
		cb.failures++
		if cb.state == Closed && cb.failures >= cb.cfg.FailureThreshold {
			changed = cb.transition(Open)
		}
	}

	cb.mu.Unlock()

	if changed != nil {
		changed()
	}
}

// transition must be called with mu held. The returned notifier, if any, must run after unlocking.
func (cb *circuitBreaker) transition(to CircuitState) func() {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0

	if to == Open {
		cb.openUntil = cb.now().Add(cb.cfg.RecoveryTimeout)
	}

	if cb.cfg.OnStateChange == nil || from == to {
		return nil
	}

	notify := cb.cfg.OnStateChange
	return func() { notify(from, to) }
}

func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	changed := cb.transition(Closed)
	cb.probing = false
	cb.mu.Unlock()

	if changed != nil {
		changed()
	}
}

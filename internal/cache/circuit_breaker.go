package cache

import (
	"errors"
	"sync"
	"time"
)

type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerOpen:
		return "open"
	case CircuitBreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	MaxFailures      int           `json:"max_failures" yaml:"max_failures"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	HalfOpenMaxCalls int           `json:"half_open_max_calls" yaml:"half_open_max_calls"`
}

func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker stops calling a failing dependency for Timeout after
// MaxFailures consecutive failures. After the timeout up to HalfOpenMaxCalls
// probes are let through; that many successes close it again and any failure
// reopens it.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	successes   int
	inFlight    int
	lastFailure time.Time

	maxFailures      int
	timeout          time.Duration
	halfOpenMaxCalls int
	now              func() time.Time
}

func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	return &CircuitBreaker{
		state:            CircuitBreakerClosed,
		maxFailures:      config.MaxFailures,
		timeout:          config.Timeout,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		now:              time.Now,
	}
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitBreakerOpen
	}

	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitBreakerOpen {
		if cb.now().Sub(cb.lastFailure) < cb.timeout {
			return false
		}
		cb.state = CircuitBreakerHalfOpen
		cb.successes = 0
		cb.inFlight = 0
	}

	if cb.state == CircuitBreakerHalfOpen {
		if cb.successes+cb.inFlight >= cb.halfOpenMaxCalls {
			return false
		}
		cb.inFlight++
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	halfOpen := cb.state == CircuitBreakerHalfOpen
	if halfOpen && cb.inFlight > 0 {
		cb.inFlight--
	}

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if halfOpen || cb.failures >= cb.maxFailures {
			cb.state = CircuitBreakerOpen
			cb.successes = 0
		}
		return
	}

	if !halfOpen {
		cb.failures = 0
		return
	}
	cb.successes++
	if cb.successes >= cb.halfOpenMaxCalls {
		cb.state = CircuitBreakerClosed
		cb.failures = 0
		cb.successes = 0
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"state":           cb.state.String(),
		"failure_count":   cb.failures,
		"success_count":   cb.successes,
		"last_failure":    cb.lastFailure.Unix(),
		"max_failures":    cb.maxFailures,
		"timeout_seconds": cb.timeout.Seconds(),
	}
}

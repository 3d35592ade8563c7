// Package resilience wraps tool execution with fortify protection patterns.
package resilience

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
)

// Executor runs tools behind an optional bulkhead and circuit breaker,
// with a timeout applied to every execution. Tool calls are not retried:
// a call may have side effects, so a failure surfaces to the caller
// instead of being replayed.
type Executor struct {
	bulkhead bulkhead.Bulkhead[tool.Result]
	breaker  circuitbreaker.CircuitBreaker[tool.Result]
	timeout  time.Duration
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// Timeout is the per-execution deadline.
	Timeout time.Duration

	// BulkheadEnabled turns on concurrency limiting.
	BulkheadEnabled bool

	// MaxConcurrent limits concurrent tool executions when the bulkhead is enabled.
	MaxConcurrent int

	// BreakerEnabled turns on the circuit breaker.
	BreakerEnabled bool

	// BreakerThreshold is the number of consecutive failures before opening.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Timeout:          30 * time.Second,
		BulkheadEnabled:  true,
		MaxConcurrent:    10,
		BreakerEnabled:   true,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// FromConfig builds an ExecutorConfig from gateway resilience settings.
func FromConfig(rc config.ResilienceConfig) ExecutorConfig {
	ec := DefaultExecutorConfig()
	if rc.Timeout > 0 {
		ec.Timeout = time.Duration(rc.Timeout)
	}
	ec.BulkheadEnabled = rc.Bulkhead.Enabled
	if rc.Bulkhead.MaxConcurrent > 0 {
		ec.MaxConcurrent = rc.Bulkhead.MaxConcurrent
	}
	ec.BreakerEnabled = rc.CircuitBreaker.Enabled
	if rc.CircuitBreaker.Threshold > 0 {
		ec.BreakerThreshold = rc.CircuitBreaker.Threshold
	}
	if rc.CircuitBreaker.Timeout > 0 {
		ec.BreakerTimeout = time.Duration(rc.CircuitBreaker.Timeout)
	}
	return ec
}

// NewExecutor creates a new resilient executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}

	e := &Executor{timeout: cfg.Timeout}
	if cfg.BulkheadEnabled {
		e.bulkhead = bulkhead.New[tool.Result](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		})
	}
	if cfg.BreakerEnabled {
		e.breaker = circuitbreaker.New[tool.Result](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    cfg.BreakerTimeout,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		})
	}
	return e
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultExecutorConfig())
}

// Execute runs a tool with the configured protections applied.
// Composition order: bulkhead, then timeout, then circuit breaker.
func (e *Executor) Execute(ctx context.Context, t tool.Tool, input json.RawMessage) (tool.Result, error) {
	start := time.Now()

	run := func(ctx context.Context) (tool.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		if e.breaker != nil {
			return e.breaker.Execute(ctx, func(ctx context.Context) (tool.Result, error) {
				return t.Execute(ctx, input)
			})
		}
		return t.Execute(ctx, input)
	}

	var result tool.Result
	var err error
	if e.bulkhead != nil {
		result, err = e.bulkhead.Execute(ctx, run)
	} else {
		result, err = run(ctx)
	}

	if err == nil && result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	return result, err
}

// ExecuteWithTimeout runs a tool with a custom deadline layered on top
// of the configured one.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, t tool.Tool, input json.RawMessage, timeout time.Duration) (tool.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.Execute(ctx, t, input)
}

// CircuitBreakerState returns the current breaker state, or the closed
// state when no breaker is configured.
func (e *Executor) CircuitBreakerState() circuitbreaker.State {
	if e.breaker == nil {
		return circuitbreaker.StateClosed
	}
	return e.breaker.State()
}

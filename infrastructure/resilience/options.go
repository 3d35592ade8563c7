package resilience

import "time"

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithTimeout sets the per-execution deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.Timeout = d
	}
}

// WithBulkhead enables concurrency limiting with the given capacity.
func WithBulkhead(maxConcurrent int) Option {
	return func(c *ExecutorConfig) {
		c.BulkheadEnabled = true
		c.MaxConcurrent = maxConcurrent
	}
}

// WithoutBulkhead disables concurrency limiting.
func WithoutBulkhead() Option {
	return func(c *ExecutorConfig) {
		c.BulkheadEnabled = false
	}
}

// WithCircuitBreaker enables the circuit breaker with the given
// consecutive-failure threshold and open duration.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.BreakerEnabled = true
		c.BreakerThreshold = threshold
		c.BreakerTimeout = timeout
	}
}

// WithoutCircuitBreaker disables the circuit breaker.
func WithoutCircuitBreaker() Option {
	return func(c *ExecutorConfig) {
		c.BreakerEnabled = false
	}
}

// NewExecutorWithOptions creates an executor with the given options
// applied over the defaults.
func NewExecutorWithOptions(opts ...Option) *Executor {
	cfg := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewExecutor(cfg)
}

package wslkit

import "time"

// ExecConfig holds configuration derived from options.
type ExecConfig struct {
	// Timeout bounds a single execution. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

// ExecOption defines a functional option for execution.
type ExecOption func(*ExecConfig)

// WithTimeout bounds every execution made by an Executor. A hung launcher is
// killed once the timeout elapses and reported as a transport failure.
func WithTimeout(d time.Duration) ExecOption {
	return func(c *ExecConfig) {
		if d < 0 {
			d = 0
		}

		c.Timeout = d
	}
}

package ssh

import (
	"time"

	"github.com/ruffel/wslkit/metrics"
	"go.uber.org/zap"
)

// Option defines a functional option for the SSH session.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		*cfg = c
	}
}

// WithConnectTimeout bounds dial plus handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ConnectTimeout = d
	}
}

// WithExecTimeout bounds how long Execute waits for an exit status.
func WithExecTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ExecTimeout = d
	}
}

// WithPollInterval sets the delay between exit-status checks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = d
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics records SSH command outcomes and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithDialer replaces the TCP dialer, mostly for tests and jump hosts.
func WithDialer(dial DialFunc) Option {
	return func(c *Config) {
		c.Dial = dial
	}
}

// WithKnownHosts verifies host keys against an OpenSSH known_hosts file.
func WithKnownHosts(path string) Option {
	return func(c *Config) {
		c.KnownHostsPath = path
	}
}

// WithAgent offers ssh-agent identities in addition to the connection's own
// credentials.
func WithAgent() Option {
	return func(c *Config) {
		c.UseAgent = true
	}
}

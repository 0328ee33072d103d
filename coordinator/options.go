package coordinator

import (
	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/metrics"
	"go.uber.org/zap"
)

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 64

// Config holds coordinator settings.
type Config struct {
	Launcher    wslkit.Launcher
	DefaultUser string
	EventBuffer int
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Option defines a functional option for the coordinator.
type Option func(*Config)

// WithLauncher sets the launcher used by the local ladder and discovery.
func WithLauncher(l wslkit.Launcher) Option {
	return func(c *Config) {
		c.Launcher = l
	}
}

// WithDefaultUser sets the username assumed when discovery cannot resolve one.
func WithDefaultUser(user string) Option {
	return func(c *Config) {
		c.DefaultUser = user
	}
}

// WithEventBuffer sets the event channel capacity. Events are dropped while
// the channel is full.
func WithEventBuffer(n int) Option {
	return func(c *Config) {
		c.EventBuffer = n
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMetrics sets the metrics shared by every component.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

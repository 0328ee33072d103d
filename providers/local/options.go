package local

import (
	"github.com/ruffel/wslkit"
	"go.uber.org/zap"
)

// Config holds configuration for the local environment.
type Config struct {
	targetOS wslkit.TargetOS
	logger   *zap.Logger
}

// Option defines a functional option for the local provider.
type Option func(*Config)

// WithTargetOS overrides the detected host operating system.
func WithTargetOS(os wslkit.TargetOS) Option {
	return func(c *Config) {
		c.targetOS = os
	}
}

// WithLogger attaches a logger that records spawn failures at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

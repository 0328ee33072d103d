// Package dispatch routes logical shell commands to the Linux subsystem.
//
// A Dispatcher sends a command over the attached remote session when that
// session is live, and otherwise walks a fixed ladder of local launcher
// invocations until one exits 0. Exactly one of the two paths is taken per
// call, chosen from the session state at call time.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/discovery"
	"github.com/ruffel/wslkit/metrics"
	"go.uber.org/zap"
)

var _ wslkit.CommandExecutor = (*Dispatcher)(nil)

// HomeResolver returns the subsystem home directory used by the first ladder strategies.
type HomeResolver func(ctx context.Context) string

// Dispatcher implements wslkit.CommandExecutor.
type Dispatcher struct {
	runner   wslkit.ProcessRunner
	session  wslkit.RemoteSession
	launcher wslkit.Launcher
	resolve  HomeResolver
	logger   *zap.Logger
	metrics  *metrics.Metrics

	homeMu sync.Mutex
	home   string
}

// Option defines a functional option for the dispatcher.
type Option func(*Dispatcher)

// WithSession attaches the remote session consulted on every call.
func WithSession(session wslkit.RemoteSession) Option {
	return func(d *Dispatcher) {
		d.session = session
	}
}

// WithLauncher overrides the subsystem launcher.
func WithLauncher(l wslkit.Launcher) Option {
	return func(d *Dispatcher) {
		d.launcher = l.WithDefaults()
	}
}

// WithHomeResolver overrides how the home directory is found.
func WithHomeResolver(resolve HomeResolver) Option {
	return func(d *Dispatcher) {
		d.resolve = resolve
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records strategy attempts and ladder durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a dispatcher running local strategies through runner.
// Unless overridden, the home directory is resolved once with discovery.
func New(runner wslkit.ProcessRunner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		runner:   runner,
		launcher: wslkit.DefaultLauncher(),
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.resolve == nil {
		disc := discovery.New(runner, discovery.WithLauncher(d.launcher), discovery.WithLogger(d.logger))
		d.resolve = disc.ResolveHomeDirectory
	}

	return d
}

// Execute runs command over the live session, or through the local ladder
// when no session is connected.
func (d *Dispatcher) Execute(ctx context.Context, command string) wslkit.CommandResult {
	if d.session != nil && d.session.IsConnected() {
		d.logger.Debug("dispatching over ssh", zap.String("command", command))

		return d.session.Execute(ctx, command)
	}

	start := time.Now()
	defer func() { d.metrics.ObserveCommand(metrics.PathLadder, time.Since(start)) }()

	home := d.homeDirectory(ctx)

	for _, s := range ladder {
		if err := ctx.Err(); err != nil {
			return wslkit.Failure("command cancelled: %v", err)
		}

		if res, ok := d.attempt(ctx, s, home, command); ok {
			return res
		}
	}

	d.logger.Warn("all launcher strategies failed", zap.String("command", command))

	return wslkit.Failure("all launcher strategies failed for: %s", command)
}

func (d *Dispatcher) attempt(ctx context.Context, s strategy, home, command string) (wslkit.CommandResult, bool) {
	cmd := s.build(d.launcher, home, command)

	res, err := d.runner.RunBuffered(ctx, cmd)

	ok := err == nil && res != nil && res.ExitCode == 0
	d.metrics.RecordStrategy(s.name, ok)

	exitCode := -1
	if res != nil {
		exitCode = res.ExitCode
	}

	d.logger.Debug("launcher strategy attempted",
		zap.String("strategy", s.name),
		zap.String("invocation", cmd.String()),
		zap.Int("exit_code", exitCode),
		zap.Error(err),
	)

	if !ok {
		return wslkit.CommandResult{}, false
	}

	return wslkit.Succeeded(string(res.Combined)), true
}

// homeDirectory resolves the home directory once and caches it.
func (d *Dispatcher) homeDirectory(ctx context.Context) string {
	d.homeMu.Lock()
	defer d.homeMu.Unlock()

	if d.home == "" {
		d.home = d.resolve(ctx)
	}

	return d.home
}

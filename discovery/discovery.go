// Package discovery probes the local Linux subsystem: whether its launcher is
// installed, who the default user is, where that user's home is and which
// distributions are registered.
//
// Probes run launcher processes directly and never fail: every error
// degrades to a documented fallback value.
package discovery

import (
	"context"
	"strings"

	"github.com/ruffel/wslkit"
	"go.uber.org/zap"
)

// DefaultUser is assumed when the subsystem cannot report its user.
const DefaultUser = "ubuntu"

// homeProbes are tried in order; the first non-empty answer wins.
var homeProbes = []string{
	"echo $HOME",
	"echo ~",
	"pwd",
	"cd ~ && pwd",
}

// Discoverer runs discovery probes through a ProcessRunner.
type Discoverer struct {
	runner      wslkit.ProcessRunner
	launcher    wslkit.Launcher
	defaultUser string
	logger      *zap.Logger
}

// Option defines a functional option for the discoverer.
type Option func(*Discoverer)

// WithLauncher overrides the subsystem launcher and its aliases.
func WithLauncher(l wslkit.Launcher) Option {
	return func(d *Discoverer) {
		d.launcher = l.WithDefaults()
	}
}

// WithDefaultUser overrides the fallback username.
func WithDefaultUser(user string) Option {
	return func(d *Discoverer) {
		if strings.TrimSpace(user) != "" {
			d.defaultUser = user
		}
	}
}

// WithLogger sets the discoverer logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Discoverer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a discoverer.
func New(runner wslkit.ProcessRunner, opts ...Option) *Discoverer {
	d := &Discoverer{
		runner:      runner,
		launcher:    wslkit.DefaultLauncher(),
		defaultUser: DefaultUser,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// IsAvailable reports whether any launcher alias answers --version with exit 0.
func (d *Discoverer) IsAvailable(ctx context.Context) bool {
	for _, alias := range d.launcher.Aliases {
		if _, ok := d.run(ctx, wslkit.NewCommand(alias, "--version")); ok {
			d.logger.Debug("launcher available", zap.String("alias", alias))

			return true
		}
	}

	d.logger.Info("no launcher alias answered", zap.Strings("aliases", d.launcher.Aliases))

	return false
}

// ResolveUsername returns the subsystem's default user, or DefaultUser.
func (d *Discoverer) ResolveUsername(ctx context.Context) string {
	if out, ok := d.run(ctx, d.launcher.Command("whoami")); ok {
		if user := strings.TrimSpace(out); user != "" {
			return user
		}
	}

	return d.defaultUser
}

// ResolveHomeDirectory returns the first non-empty answer from the home
// probes, falling back to /home/<user>.
func (d *Discoverer) ResolveHomeDirectory(ctx context.Context) string {
	for _, probe := range homeProbes {
		out, ok := d.run(ctx, d.launcher.Command("bash", "-c", probe))
		if home := strings.TrimSpace(out); ok && home != "" {
			d.logger.Debug("home directory resolved", zap.String("probe", probe), zap.String("home", home))

			return home
		}
	}

	fallback := "/home/" + d.ResolveUsername(ctx)
	d.logger.Debug("home directory fallback", zap.String("home", fallback))

	return fallback
}

// CurrentDirectory returns the directory commands start in, which is the home directory.
func (d *Discoverer) CurrentDirectory(ctx context.Context) string {
	return d.ResolveHomeDirectory(ctx)
}

// ListDistributions returns the registered distribution names. It never
// returns nil.
func (d *Discoverer) ListDistributions(ctx context.Context) []string {
	for _, alias := range d.launcher.Aliases {
		res, err := d.runner.RunBuffered(ctx, wslkit.NewCommand(alias, "--list", "--verbose"))
		if err != nil || res == nil || res.ExitCode != 0 {
			continue
		}

		distros := ParseDistributions(res.Stdout)
		d.logger.Debug("distributions listed", zap.String("alias", alias), zap.Strings("distributions", distros))

		return distros
	}

	return []string{}
}

// run executes cmd and returns its decoded stdout and whether it exited 0.
func (d *Discoverer) run(ctx context.Context, cmd *wslkit.Command) (string, bool) {
	res, err := d.runner.RunBuffered(ctx, cmd)
	if err != nil || res == nil {
		d.logger.Debug("probe failed", zap.String("command", cmd.String()), zap.Error(err))

		return "", false
	}

	return DecodeOutput(res.Stdout), res.ExitCode == 0
}

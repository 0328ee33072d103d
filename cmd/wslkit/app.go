package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/config"
	"github.com/ruffel/wslkit/coordinator"
	"github.com/ruffel/wslkit/logging"
	"github.com/ruffel/wslkit/metrics"
	"github.com/ruffel/wslkit/providers/ssh"
	"github.com/ruffel/wslkit/settings"
	"go.uber.org/zap"
)

// RunnerFactory builds the local process runner and its cleanup.
type RunnerFactory func(logger *zap.Logger) (wslkit.ProcessRunner, func())

// globalFlags are shared by every subcommand.
type globalFlags struct {
	host        string
	port        int
	user        string
	password    string
	key         string
	sshAlias    string
	sshConfig   string
	useSettings bool
}

// app is the wiring of one CLI invocation.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *settings.FileStore
	session *ssh.Session
	coord   *coordinator.Coordinator

	metricsServer *http.Server
	cleanups      []func()
}

func newApp(newRunner RunnerFactory) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	settingsPath, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: settings.NewFileStore(settingsPath)}

	var m *metrics.Metrics

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m = metrics.NewMetrics(reg)
		a.serveMetrics(reg)
	}

	runner, cleanup := newRunner(logger.Named("local"))
	a.cleanups = append(a.cleanups, cleanup)

	sshCfg := cfg.SSH()
	sshCfg.Logger = logger.Named("ssh")
	sshCfg.Metrics = m
	a.session = ssh.New(ssh.WithConfig(sshCfg))

	a.coord = coordinator.New(runner, a.session,
		coordinator.WithLauncher(cfg.ResolveLauncher()),
		coordinator.WithDefaultUser(cfg.DefaultUser),
		coordinator.WithLogger(logger),
		coordinator.WithMetrics(m),
	)

	return a, nil
}

func (a *app) serveMetrics(reg *prometheus.Registry) {
	a.metricsServer = &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	a.logger.Info("serving metrics", zap.String("addr", a.cfg.MetricsAddr))
}

func (a *app) close() {
	a.coord.Close()
	a.session.Disconnect()

	for _, c := range a.cleanups {
		c()
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = a.metricsServer.Shutdown(ctx)
	}

	_ = a.logger.Sync()
}

// connection resolves the SSH target from flags, an ssh_config alias or the
// saved settings. ok is false when commands should run locally.
func (a *app) connection(flags *globalFlags) (wslkit.Connection, bool, error) {
	switch {
	case flags.sshAlias != "":
		path := flags.sshConfig
		if path == "" {
			path = defaultSSHConfig()
		}

		conn, err := ssh.LoadConnection(flags.sshAlias, path)
		if err != nil {
			return wslkit.Connection{}, false, err
		}

		return overlay(conn, flags), true, nil
	case flags.host != "":
		return overlay(wslkit.Connection{}, flags), true, nil
	case flags.useSettings:
		saved, err := a.store.Load()
		if err != nil {
			return wslkit.Connection{}, false, err
		}

		if saved.Host == "" {
			return wslkit.Connection{}, false, nil
		}

		return overlay(saved.Connection(), flags), true, nil
	default:
		return wslkit.Connection{}, false, nil
	}
}

// overlay applies explicitly set flags on top of conn.
func overlay(conn wslkit.Connection, flags *globalFlags) wslkit.Connection {
	if flags.host != "" {
		conn.Host = flags.host
	}

	if flags.port != 0 {
		conn.Port = flags.port
	}

	if flags.user != "" {
		conn.Username = flags.user
	}

	if flags.password != "" {
		conn.Password = flags.password
	}

	if flags.key != "" {
		conn.KeyPath = flags.key
		conn.UseKeyAuth = true
	}

	return conn.WithDefaults()
}

// connect opens the session when a target is configured.
func (a *app) connect(ctx context.Context, flags *globalFlags) (bool, error) {
	conn, ok, err := a.connection(flags)
	if err != nil || !ok {
		return false, err
	}

	connected, err := a.coord.Connect(conn).Wait(ctx)
	if err != nil {
		return false, err
	}

	if !connected {
		return false, fmt.Errorf("could not connect to %s", conn)
	}

	return true, nil
}

// follow prints progress events of the task id until it resolves.
func (a *app) follow(ctx context.Context, id uuid.UUID, emit func(coordinator.Event)) {
	for {
		select {
		case ev, ok := <-a.coord.Events():
			if !ok {
				return
			}

			if ev.TaskID != id {
				continue
			}

			emit(ev)

			if ev.Kind == coordinator.KindCompleted || ev.Kind == coordinator.KindFailed {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func defaultSSHConfig() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".ssh", "config")
}

// Package config reads process configuration from WSLKIT_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/logging"
	"github.com/ruffel/wslkit/providers/ssh"
)

// Prefix is prepended to every variable name.
const Prefix = "WSLKIT"

// Config holds process-wide settings.
type Config struct {
	Launcher        string   `envconfig:"LAUNCHER" default:"wsl"`
	LauncherAliases []string `envconfig:"LAUNCHER_ALIASES"`
	SystemShell     string   `envconfig:"SYSTEM_SHELL" default:"cmd"`
	ScriptShell     string   `envconfig:"SCRIPT_SHELL" default:"powershell"`
	DefaultUser     string   `envconfig:"DEFAULT_USER" default:"ubuntu"`

	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"5s"`
	ExecTimeout    time.Duration `envconfig:"EXEC_TIMEOUT" default:"60s"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"100ms"`
	KnownHosts     string        `envconfig:"KNOWN_HOSTS"`
	SSHAgent       bool          `envconfig:"SSH_AGENT"`

	SettingsPath string `envconfig:"SETTINGS_PATH"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

var errInvalidTimeout = errors.New("failed to load config: timeouts must be positive")

// Load reads the environment into a Config.
func Load() (Config, error) {
	var cfg Config

	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.ConnectTimeout <= 0 || cfg.ExecTimeout <= 0 || cfg.PollInterval <= 0 {
		return Config{}, errInvalidTimeout
	}

	return cfg, nil
}

// ResolveLauncher returns the launcher the config describes.
func (c Config) ResolveLauncher() wslkit.Launcher {
	return wslkit.Launcher{
		Name:        c.Launcher,
		Aliases:     c.LauncherAliases,
		SystemShell: c.SystemShell,
		ScriptShell: c.ScriptShell,
	}.WithDefaults()
}

// SSH returns the session options the config describes.
func (c Config) SSH() ssh.Config {
	return ssh.Config{
		ConnectTimeout: c.ConnectTimeout,
		ExecTimeout:    c.ExecTimeout,
		PollInterval:   c.PollInterval,
		KnownHostsPath: c.KnownHosts,
		UseAgent:       c.SSHAgent,
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat}
}

// Settings returns the settings file path, defaulting to
// ~/.wslkit/settings.yaml.
func (c Config) Settings() (string, error) {
	if c.SettingsPath != "" {
		return c.SettingsPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve settings path: %w", err)
	}

	return filepath.Join(home, ".wslkit", "settings.yaml"), nil
}

package config

import (
	"testing"
	"time"

	"github.com/ruffel/wslkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests use t.Setenv and therefore cannot run in parallel.

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wsl", cfg.Launcher)
	assert.Equal(t, "ubuntu", cfg.DefaultUser)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 60*time.Second, cfg.ExecTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)

	assert.Equal(t, wslkit.DefaultLauncher(), cfg.ResolveLauncher())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WSLKIT_LAUNCHER", "wsl2")
	t.Setenv("WSLKIT_LAUNCHER_ALIASES", "wsl2,/mnt/c/Windows/System32/wsl.exe")
	t.Setenv("WSLKIT_SYSTEM_SHELL", "cmd.exe")
	t.Setenv("WSLKIT_EXEC_TIMEOUT", "2m")
	t.Setenv("WSLKIT_POLL_INTERVAL", "250ms")
	t.Setenv("WSLKIT_LOG_FORMAT", "json")
	t.Setenv("WSLKIT_SETTINGS_PATH", "/tmp/wslkit.yaml")
	t.Setenv("WSLKIT_METRICS_ADDR", ":9464")
	t.Setenv("WSLKIT_KNOWN_HOSTS", "~/.ssh/known_hosts")
	t.Setenv("WSLKIT_SSH_AGENT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	launcher := cfg.ResolveLauncher()
	assert.Equal(t, "wsl2", launcher.Name)
	assert.Equal(t, []string{"wsl2", "/mnt/c/Windows/System32/wsl.exe"}, launcher.Aliases)
	assert.Equal(t, "cmd.exe", launcher.SystemShell)
	assert.Equal(t, "powershell", launcher.ScriptShell)

	sshCfg := cfg.SSH()
	assert.Equal(t, 2*time.Minute, sshCfg.ExecTimeout)
	assert.Equal(t, 250*time.Millisecond, sshCfg.PollInterval)
	assert.Equal(t, "~/.ssh/known_hosts", sshCfg.KnownHostsPath)
	assert.True(t, sshCfg.UseAgent)

	assert.Equal(t, "json", cfg.Logging().Format)
	assert.Equal(t, ":9464", cfg.MetricsAddr)

	path, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/wslkit.yaml", path)
}

func TestLoad_CustomLauncherIsItsOwnAlias(t *testing.T) {
	t.Setenv("WSLKIT_LAUNCHER", "wsl2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"wsl2"}, cfg.ResolveLauncher().Aliases)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unparsable duration", key: "WSLKIT_CONNECT_TIMEOUT", value: "soon"},
		{name: "zero timeout", key: "WSLKIT_EXEC_TIMEOUT", value: "0s"},
		{name: "negative poll", key: "WSLKIT_POLL_INTERVAL", value: "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to load config")
		})
	}
}

func TestSettings_DefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/dev")

	path, err := Config{}.Settings()
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/.wslkit/settings.yaml", path)
}

package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Session defaults.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultExecTimeout    = 60 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
)

// DialFunc opens the transport connection a session handshakes over.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config holds the tunables of a Session.
type Config struct {
	ConnectTimeout time.Duration // Bounds dial and handshake together
	ExecTimeout    time.Duration // Bounds the exit-status poll of one command
	PollInterval   time.Duration // Delay between exit-status checks
	KnownHostsPath string        // Verify host keys against this file; empty disables verification
	UseAgent       bool          // Offer ssh-agent identities from SSH_AUTH_SOCK
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Dial           DialFunc
}

// WithDefaults sets default values for zero-valued fields.
func (c Config) WithDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}

	if c.ExecTimeout <= 0 {
		c.ExecTimeout = DefaultExecTimeout
	}

	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	if c.Dial == nil {
		c.Dial = (&net.Dialer{}).DialContext
	}

	return c
}

// clientConfig converts a Connection into the x/crypto client configuration.
func (c Config) clientConfig(conn wslkit.Connection) (*ssh.ClientConfig, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // subsystem hosts regenerate keys on reinstall

	if c.KnownHostsPath != "" {
		cb, err := knownhosts.New(expandHome(c.KnownHostsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}

		hostKeyCallback = cb
	}

	config := &ssh.ClientConfig{
		User:            conn.Username,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.ConnectTimeout,
	}

	if conn.KeyAuth() {
		auth, err := loadPrivateKeyAuth(conn.KeyPath)
		if err != nil {
			return nil, err
		}

		config.Auth = []ssh.AuthMethod{auth}
	} else {
		password := conn.Password
		config.Auth = []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}

				return answers, nil
			}),
		}
	}

	if agentAuth := loadAgentAuth(c.UseAgent); agentAuth != nil {
		config.Auth = append(config.Auth, agentAuth)
	}

	return config, nil
}

// loadAgentAuth returns the identities held by the running ssh-agent, or nil
// when disabled or no agent is reachable.
func loadAgentAuth(useAgent bool) ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if !useAgent || socket == "" {
		return nil
	}

	conn, err := (&net.Dialer{Timeout: 500 * time.Millisecond}).DialContext(context.Background(), "unix", socket)
	if err != nil {
		return nil
	}

	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}

// loadPrivateKeyAuth reads a PEM private key file into an auth method.
func loadPrivateKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	keyBytes, err := os.ReadFile(expandHome(keyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key file: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// LoadConnection resolves alias from an OpenSSH config file.
// An empty path reads ~/.ssh/config.
func LoadConnection(alias, path string) (wslkit.Connection, error) {
	if path == "" {
		path = filepath.Join(homeDir(), ".ssh", "config")
	}

	f, err := os.Open(path)
	if err != nil {
		return wslkit.Connection{}, fmt.Errorf("failed to open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return LoadConnectionReader(alias, f)
}

// LoadConnectionReader resolves alias to its HostName, User, Port and
// IdentityFile. An IdentityFile switches the connection to key auth.
func LoadConnectionReader(alias string, r io.Reader) (wslkit.Connection, error) {
	if strings.TrimSpace(alias) == "" {
		return wslkit.Connection{}, errors.New("ssh config alias cannot be empty")
	}

	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return wslkit.Connection{}, fmt.Errorf("failed to parse ssh config: %w", err)
	}

	conn := wslkit.Connection{Host: alias, Port: wslkit.DefaultSSHPort}

	if hostName, _ := cfg.Get(alias, "HostName"); hostName != "" {
		conn.Host = hostName
	}

	conn.Username, _ = cfg.Get(alias, "User")
	if conn.Username == "" {
		if u, err := user.Current(); err == nil {
			conn.Username = u.Username
		}
	}

	if portStr, _ := cfg.Get(alias, "Port"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return wslkit.Connection{}, fmt.Errorf("invalid port %q for host %s: %w", portStr, alias, err)
		}

		conn.Port = port
	}

	if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
		conn.KeyPath = expandHome(identity)
		conn.UseKeyAuth = true
	}

	return conn, nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}

	return path
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}

	return os.Getenv("HOME")
}

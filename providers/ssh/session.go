package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

var _ wslkit.RemoteSession = (*Session)(nil)

const keepaliveRequest = "keepalive@openssh.com"

// Session is a remote shell session holding at most one live client.
type Session struct {
	cfg Config

	mu     sync.Mutex
	client *ssh.Client
	conn   wslkit.Connection
}

// New creates a disconnected session.
func New(opts ...Option) *Session {
	var cfg Config

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{cfg: cfg.WithDefaults()}
}

// Connect establishes a client for conn, replacing any previous one.
// Every failure is logged and reported as false.
func (s *Session) Connect(ctx context.Context, conn wslkit.Connection) bool {
	conn = conn.WithDefaults()
	logger := s.cfg.Logger.With(zap.String("host", conn.Address()), zap.String("user", conn.Username))

	if err := conn.Validate(); err != nil {
		logger.Warn("invalid ssh connection", zap.Error(err))

		return false
	}

	clientCfg, err := s.cfg.clientConfig(conn)
	if err != nil {
		logger.Warn("ssh auth setup failed", zap.Error(err))

		return false
	}

	if s.cfg.KnownHostsPath == "" {
		logger.Warn("host key verification disabled for ssh session")
	}

	client, err := s.dial(ctx, conn.Address(), clientCfg)
	if err != nil {
		logger.Warn("ssh connect failed", zap.Error(err))

		return false
	}

	s.mu.Lock()
	previous := s.client
	s.client = client
	s.conn = conn
	s.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}

	logger.Info("ssh session established", zap.Bool("key_auth", conn.KeyAuth()))

	return true
}

func (s *Session) dial(ctx context.Context, addr string, clientCfg *ssh.ClientConfig) (*ssh.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	netConn, err := s.cfg.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh at %s: %w", addr, err)
	}

	// The handshake does not observe ctx, so bound it with the same deadline.
	if deadline, ok := ctx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, clientCfg)
	if err != nil {
		_ = netConn.Close()

		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}

	_ = netConn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

// IsConnected performs a keepalive round trip on the live client.
func (s *Session) IsConnected() bool {
	client := s.current()
	if client == nil {
		return false
	}

	alive := make(chan bool, 1)

	go func() {
		_, _, err := client.SendRequest(keepaliveRequest, true, nil)
		alive <- err == nil
	}()

	select {
	case ok := <-alive:
		return ok
	case <-time.After(s.cfg.ConnectTimeout):
		return false
	}
}

// Connection returns the connection the live client was established with.
func (s *Session) Connection() (wslkit.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn, s.client != nil
}

// Execute runs command on a fresh exec channel and waits for its exit status.
func (s *Session) Execute(ctx context.Context, command string) wslkit.CommandResult {
	client := s.current()
	if client == nil {
		s.cfg.Metrics.RecordSSHCommand(metrics.OutcomeFailure)

		return wslkit.NotConnected()
	}

	start := time.Now()
	res := s.execute(ctx, client, command)

	s.cfg.Metrics.ObserveCommand(metrics.PathSSH, time.Since(start))
	s.cfg.Logger.Debug("ssh command finished",
		zap.String("command", command),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", time.Since(start)),
	)

	return res
}

type exitStatus struct {
	err error
}

func (s *Session) execute(ctx context.Context, client *ssh.Client, command string) wslkit.CommandResult {
	channel, err := client.NewSession()
	if err != nil {
		s.cfg.Metrics.RecordSSHCommand(metrics.OutcomeFailure)

		if !s.IsConnected() {
			return wslkit.NotConnected()
		}

		return wslkit.Failure("failed to open ssh channel: %v", err)
	}

	defer func() { _ = channel.Close() }()

	var stdout, stderr bytes.Buffer

	channel.Stdout = &stdout
	channel.Stderr = &stderr

	if err := channel.Start(command); err != nil {
		s.cfg.Metrics.RecordSSHCommand(metrics.OutcomeFailure)

		return wslkit.Failure("failed to start remote command: %v", err)
	}

	var status atomic.Pointer[exitStatus]

	go func() {
		err := channel.Wait()
		status.Store(&exitStatus{err: err})
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(s.cfg.ExecTimeout)
	defer deadline.Stop()

	for {
		if st := status.Load(); st != nil {
			return s.result(st.err, stdout.String(), stderr.String())
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			_ = channel.Signal(ssh.SIGKILL)
			s.cfg.Metrics.RecordSSHCommand(metrics.OutcomeTimeout)

			return wslkit.Failure("command timed out after %s", s.cfg.ExecTimeout)
		case <-ctx.Done():
			_ = channel.Signal(ssh.SIGKILL)
			s.cfg.Metrics.RecordSSHCommand(metrics.OutcomeTimeout)

			return wslkit.Failure("command cancelled: %v", ctx.Err())
		}
	}
}

func (s *Session) result(waitErr error, stdout, stderr string) wslkit.CommandResult {
	if waitErr == nil {
		s.cfg.Metrics.RecordSSHCommand(metrics.OutcomeSuccess)

		return wslkit.NewCommandResult(stdout, stderr, 0)
	}

	s.cfg.Metrics.RecordSSHCommand(metrics.OutcomeFailure)

	var exitErr *ssh.ExitError
	if errors.As(waitErr, &exitErr) {
		return wslkit.NewCommandResult(stdout, stderr, exitErr.ExitStatus())
	}

	var missingErr *ssh.ExitMissingError
	if errors.As(waitErr, &missingErr) {
		return wslkit.CommandResult{Output: stdout, Error: "remote command exited without status", ExitCode: -1}
	}

	return wslkit.CommandResult{Output: stdout, Error: waitErr.Error(), ExitCode: -1}
}

// Disconnect closes the live client. Calling it without one is a no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return
	}

	if err := client.Close(); err != nil {
		s.cfg.Logger.Debug("error closing ssh client", zap.Error(err))
	}

	s.cfg.Logger.Info("ssh session closed")
}

func (s *Session) current() *ssh.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client
}

package wslkit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

var _ ProcessRunner = (*Executor)(nil)

// Executor handles process execution with timeouts and output buffering.
// It is the ProcessRunner every local subsystem path is built on.
type Executor struct {
	env Environment
	cfg ExecConfig
}

// NewExecutor creates a new Executor with the given environment.
func NewExecutor(env Environment, opts ...ExecOption) *Executor {
	var cfg ExecConfig

	for _, o := range opts {
		o(&cfg)
	}

	return &Executor{env: env, cfg: cfg}
}

// Run executes a command, respecting context cancellation and the configured timeout.
// A non-zero exit is returned as an *ExitError alongside the result.
func (e *Executor) Run(ctx context.Context, cmd *Command) (*Result, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	res, err := e.env.Run(ctx, cmd)
	if err != nil {
		// A killed process surfaces as an exit error; report the deadline instead.
		if ctx.Err() != nil {
			return res, &TransportError{Command: cmd, Err: ctx.Err()}
		}

		return res, err
	}

	// Check if the execution had a non-zero exit code
	if res != nil && res.ExitCode != 0 {
		return res, &ExitError{
			Command:  cmd,
			ExitCode: res.ExitCode,
		}
	}

	return res, nil
}

// RunBuffered executes a command and captures Stdout, Stderr and their interleaving.
func (e *Executor) RunBuffered(ctx context.Context, cmd *Command) (*BufferedResult, error) {
	var (
		stdoutBuf, stderrBuf bytes.Buffer
		combined             lockedBuffer
	)

	cmdCopy := *cmd // copy
	cmdCopy.Stdout = io.MultiWriter(&stdoutBuf, &combined)
	cmdCopy.Stderr = io.MultiWriter(&stderrBuf, &combined)

	result, err := e.Run(ctx, &cmdCopy)

	bufResult := &BufferedResult{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
		Combined: combined.Bytes(),
	}
	if result != nil {
		bufResult.Result = *result
	}

	// Attach stderr to ExitError for context
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			exitErr.Stderr = bufResult.Stderr
		}
	}

	if result == nil && err != nil {
		return nil, err
	}

	return bufResult, err
}

// RunShell executes a shell command string using the target OS's default shell.
func (e *Executor) RunShell(ctx context.Context, cmdStr string) (*BufferedResult, error) {
	return e.RunBuffered(ctx, e.env.TargetOS().ShellCommand(cmdStr))
}

// LookPath resolves an executable path using the underlying environment's LookPath strategy.
func (e *Executor) LookPath(ctx context.Context, file string) (string, error) {
	return e.env.LookPath(ctx, file)
}

// TargetOS returns the operating system of the underlying environment.
func (e *Executor) TargetOS() TargetOS {
	return e.env.TargetOS()
}

// lockedBuffer serialises writes from the stdout and stderr copiers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Bytes()
}

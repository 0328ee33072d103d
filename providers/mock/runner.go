package mock

import (
	"context"
	"errors"
	"slices"

	"github.com/ruffel/wslkit"
	"github.com/stretchr/testify/mock"
)

// ProcessRunner implements a mock wslkit.ProcessRunner.
type ProcessRunner struct {
	mock.Mock
}

var _ wslkit.ProcessRunner = (*ProcessRunner)(nil)

// NewProcessRunner creates a new mock runner.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{}
}

// RunBuffered mocks running an executable and buffering its output.
func (m *ProcessRunner) RunBuffered(ctx context.Context, cmd *wslkit.Command) (*wslkit.BufferedResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*wslkit.BufferedResult), args.Error(1)
}

// OnArgs registers an expectation for exactly binary followed by args.
func (m *ProcessRunner) OnArgs(binary string, args ...string) *mock.Call {
	return m.On("RunBuffered", mock.Anything, MatchCommand(binary, args...))
}

// MatchCommand matches a *wslkit.Command by binary and exact arguments.
func MatchCommand(binary string, args ...string) any {
	return mock.MatchedBy(func(c *wslkit.Command) bool {
		return c != nil && c.Cmd == binary && slices.Equal(c.Args, args)
	})
}

// Buffered builds a buffered result whose stdout and combined output are out.
func Buffered(out string, exitCode int) *wslkit.BufferedResult {
	return &wslkit.BufferedResult{
		Result:   wslkit.Result{ExitCode: exitCode},
		Stdout:   []byte(out),
		Combined: []byte(out),
	}
}

// Failed returns the values a real runner yields for a non-zero exit.
func Failed(out string, exitCode int) (*wslkit.BufferedResult, error) {
	return Buffered(out, exitCode), &wslkit.ExitError{ExitCode: exitCode}
}

// SpawnError returns the error a real runner yields when the binary is missing.
func SpawnError(binary string) error {
	return &wslkit.TransportError{
		Command: wslkit.NewCommand(binary),
		Err:     errExecutableNotFound,
	}
}

var errExecutableNotFound = errors.New("executable file not found in $PATH")

// CommandExecutor implements a mock wslkit.CommandExecutor.
type CommandExecutor struct {
	mock.Mock
}

var _ wslkit.CommandExecutor = (*CommandExecutor)(nil)

// NewCommandExecutor creates a new mock executor.
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{}
}

// Execute mocks running a logical command.
func (m *CommandExecutor) Execute(ctx context.Context, command string) wslkit.CommandResult {
	return m.Called(ctx, command).Get(0).(wslkit.CommandResult)
}

// OnCommand registers an expectation for command.
func (m *CommandExecutor) OnCommand(command string) *mock.Call {
	return m.On("Execute", mock.Anything, command)
}

// RemoteSession implements a mock wslkit.RemoteSession.
type RemoteSession struct {
	mock.Mock
}

var _ wslkit.RemoteSession = (*RemoteSession)(nil)

// NewRemoteSession creates a new mock session.
func NewRemoteSession() *RemoteSession {
	return &RemoteSession{}
}

// Execute mocks running a command over the session.
func (m *RemoteSession) Execute(ctx context.Context, command string) wslkit.CommandResult {
	return m.Called(ctx, command).Get(0).(wslkit.CommandResult)
}

// IsConnected mocks the live connection probe.
func (m *RemoteSession) IsConnected() bool {
	return m.Called().Bool(0)
}

// Connect mocks establishing the session.
func (m *RemoteSession) Connect(ctx context.Context, conn wslkit.Connection) bool {
	return m.Called(ctx, conn).Bool(0)
}

// Disconnect mocks closing the session.
func (m *RemoteSession) Disconnect() {
	m.Called()
}

// Package wslkit drives a Linux subsystem (a local WSL-style sandbox or a remote
// host reachable over SSH) through one command-execution abstraction.
//
// # Core Interfaces
//
// - Environment: The system processes are spawned on (the local host).
// - Process: A running command handle (allows Wait, Signal, Close).
// - ProcessRunner: Runs an executable to completion and buffers its output.
// - CommandExecutor: Runs a logical shell command inside the subsystem and
// returns a CommandResult, whichever transport is used to reach it.
//
// # Buffering
//
// Output is never streamed to callers. Process-level helpers capture stdout and
// stderr into buffers; subsystem-level helpers fold them into a CommandResult
// once the command has finished.
package wslkit

import (
	"context"
	"io"
	"os"
)

// Environment abstracts the system where executables are spawned.
type Environment interface {
	io.Closer

	// Run executes a command synchronously.
	// Returns the result (exit code, error). Output is not captured by default; use Command.Stdout/Stderr.
	Run(ctx context.Context, cmd *Command) (*Result, error)

	// Start initiates a command asynchronously.
	// The caller manages the returned Process (Wait/Signal) and must ensure resources are released via
	// either Wait() or Close().
	Start(ctx context.Context, cmd *Command) (Process, error)

	// TargetOS returns the operating system of the target environment.
	TargetOS() TargetOS

	// LookPath searches for an executable named file in the directories named by
	// the PATH environment variable.
	LookPath(ctx context.Context, file string) (string, error)
}

// Process represents a command that has been started but not yet completed.
type Process interface {
	io.Closer

	// Wait blocks until the process exits.
	// Returns an error if the exit code is non-zero.
	Wait() error

	// Result returns metadata (exit code, termination status) (only valid after Wait).
	Result() *Result

	// Signal sends an OS signal to the process.
	Signal(sig os.Signal) error
}

// ProcessRunner invokes an external executable and buffers everything it writes.
//
// A spawn failure is reported as a *TransportError with a nil result; a
// non-zero exit is reported as an *ExitError alongside the buffered result.
type ProcessRunner interface {
	RunBuffered(ctx context.Context, cmd *Command) (*BufferedResult, error)
}

// CommandExecutor runs a logical shell command inside the subsystem.
// Implementations never return an error: every failure is folded into the result.
type CommandExecutor interface {
	Execute(ctx context.Context, command string) CommandResult
}

// RemoteSession is a live shell session that commands can be sent through.
type RemoteSession interface {
	CommandExecutor

	// IsConnected reports whether the underlying connection is currently alive.
	IsConnected() bool
}

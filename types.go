package wslkit

import (
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

// DefaultSSHPort is used when a Connection leaves Port unset.
const DefaultSSHPort = 22

// Command configures a process execution.
type Command struct {
	Cmd  string   // Binary name or path to executable
	Args []string // Arguments to pass to the binary
	Env  []string // Environment variables in "KEY=VALUE" format
	Dir  string   // Working directory for execution

	// Standard streams. If nil, defaults to empty/discard.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Validate checks that the command is well-formed.
// Returns an error if the command is nil or has an empty binary.
func (c *Command) Validate() error {
	if c == nil {
		return errors.New("command cannot be nil")
	}

	if strings.TrimSpace(c.Cmd) == "" {
		return errors.New("command binary cannot be empty")
	}

	return nil
}

// NewCommand creates a new Command with the given binary and arguments.
func NewCommand(binary string, args ...string) *Command {
	return &Command{
		Cmd:  binary,
		Args: args,
	}
}

// String returns a simplified, shell-quoted string representation of the command.
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}

	var b strings.Builder
	b.WriteString(c.Cmd)

	for _, arg := range c.Args {
		b.WriteString(" ")

		if strings.ContainsAny(arg, " \t") {
			fmt.Fprintf(&b, "%q", arg)
		} else {
			b.WriteString(arg)
		}
	}

	return b.String()
}

// SplitWords splits a shell command line into words using shlex rules.
// It handles quoted arguments correctly.
func SplitWords(cmdStr string) ([]string, error) {
	parts, err := shlex.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}

	if len(parts) == 0 {
		return nil, errors.New("empty command")
	}

	return parts, nil
}

// Result contains metadata about a completed process execution.
type Result struct {
	ExitCode int           // Process exit code (0 indicates success)
	Duration time.Duration // Time taken for execution
	Error    error         // Launch/Transport error (distinct from non-zero exit code)
}

// BufferedResult extends Result to include captured output.
// Returned by Executor.RunBuffered.
type BufferedResult struct {
	Result

	Stdout   []byte
	Stderr   []byte
	Combined []byte // stdout and stderr interleaved in arrival order
}

// Success returns true if the command completed with exit code 0 and no transport error.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Failed returns true if the command failed (non-zero exit code or transport error).
func (r *Result) Failed() bool {
	return !r.Success()
}

// CommandResult is the uniform outcome of a subsystem command, whichever path ran it.
//
// Success is true iff ExitCode is 0. Error is only populated on failure, but a
// failure may leave it empty and signal through ExitCode alone.
type CommandResult struct {
	Output   string
	Error    string
	ExitCode int
	Success  bool
}

// Succeeded builds a successful CommandResult carrying output.
func Succeeded(output string) CommandResult {
	return CommandResult{Output: output, ExitCode: 0, Success: true}
}

// NewCommandResult builds a CommandResult from raw process output.
// The error text is dropped on success.
func NewCommandResult(output, errText string, exitCode int) CommandResult {
	if exitCode == 0 {
		return CommandResult{Output: output, ExitCode: 0, Success: true}
	}

	return CommandResult{Output: output, Error: errText, ExitCode: exitCode, Success: false}
}

// Failure builds a failed CommandResult with exit code -1.
func Failure(format string, args ...any) CommandResult {
	return CommandResult{Error: fmt.Sprintf(format, args...), ExitCode: -1, Success: false}
}

// NotConnected is the terminal result for a remote call made without a live session.
func NotConnected() CommandResult {
	return CommandResult{Error: ErrNotConnected.Error(), ExitCode: -1, Success: false}
}

// Connection describes how to reach a remote shell. It is never mutated once built.
type Connection struct {
	Host       string
	Port       int
	Username   string
	Password   string
	UseKeyAuth bool
	KeyPath    string
}

// WithDefaults returns a copy with zero-valued fields defaulted.
func (c Connection) WithDefaults() Connection {
	if c.Port == 0 {
		c.Port = DefaultSSHPort
	}

	return c
}

// Address returns the host:port dial address.
func (c Connection) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.WithDefaults().Port))
}

// KeyAuth reports whether key-based authentication will be used.
func (c Connection) KeyAuth() bool {
	return c.UseKeyAuth && c.KeyPath != ""
}

// Validate checks that the connection can be dialled.
func (c Connection) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("connection error: host cannot be empty")
	}

	if strings.TrimSpace(c.Username) == "" {
		return errors.New("connection error: username cannot be empty")
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("connection error: port %d out of range", c.Port)
	}

	return nil
}

// String renders user@host:port, never the credentials.
func (c Connection) String() string {
	return c.Username + "@" + c.Address()
}

// TargetOS identifies the operating system of the target environment.
type TargetOS int

const (
	// OSUnknown represents an unidentified operating system.
	OSUnknown TargetOS = iota
	// OSLinux represents the Linux kernel.
	OSLinux
	// OSWindows represents Microsoft Windows.
	OSWindows
	// OSDarwin represents macOS (Darwin).
	OSDarwin
)

func (os TargetOS) String() string {
	switch os {
	case OSLinux:
		return "linux"
	case OSWindows:
		return "windows"
	case OSDarwin:
		return "darwin"
	case OSUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// ShellCommand constructs a command that runs the provided script inside the system shell.
// Returns "sh -c <script>" for UNIX-likes and "cmd /c <script>" for Windows.
func (os TargetOS) ShellCommand(script string) *Command {
	if os == OSWindows {
		return &Command{
			Cmd:  "cmd",
			Args: []string{"/c", script},
		}
	}

	return &Command{
		Cmd:  "sh",
		Args: []string{"-c", script},
	}
}

// parseTargetOS converts a typical OS string (e.g., "linux", "darwin") to a TargetOS.
func parseTargetOS(osStr string) TargetOS {
	switch strings.ToLower(strings.TrimSpace(osStr)) {
	case "linux":
		return OSLinux
	case "windows", "windows_nt":
		return OSWindows
	case "darwin", "macos":
		return OSDarwin
	default:
		return OSUnknown
	}
}

// DetectLocalOS returns the TargetOS of the current running process.
func DetectLocalOS() TargetOS {
	return parseTargetOS(runtime.GOOS)
}

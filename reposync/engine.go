// Package reposync keeps a working directory's git repository and its
// submodules present, cloning or initialising them as needed.
//
// Every git operation is a shell command sent through a
// wslkit.CommandExecutor, so the same engine works over SSH and through the
// local launcher ladder.
package reposync

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/metrics"
	"go.uber.org/zap"
)

// DefaultBranch is cloned when no branch is given.
const DefaultBranch = "main"

// Engine runs the sync state machine.
type Engine struct {
	exec    wslkit.CommandExecutor
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option defines a functional option for the engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics counts terminal sync results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine executing git through exec.
func New(exec wslkit.CommandExecutor, opts ...Option) *Engine {
	e := &Engine{exec: exec, logger: zap.NewNop()}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Sync brings workDir in line with url at branch. Every transition is passed
// to report, which may be nil; the terminal status is also returned.
func (e *Engine) Sync(ctx context.Context, url, branch, workDir string, report func(Status)) (final Status) {
	if report == nil {
		report = func(Status) {}
	}

	emit := func(s Status) Status {
		e.logger.Debug("repository sync transition",
			zap.String("state", s.State.String()),
			zap.String("message", s.Message),
			zap.String("work_dir", workDir),
		)
		report(s)

		return s
	}

	defer func() {
		if r := recover(); r != nil {
			final = failed("Error: ", fmt.Sprint(r))

			// report itself may be what panicked.
			func() {
				defer func() { _ = recover() }()

				report(final)
			}()
		}

		e.metrics.RecordRepoSync(final.State.String())

		if final.State == StateFailed {
			e.logger.Warn("repository sync failed", zap.String("work_dir", workDir), zap.String("reason", final.Reason))
		}
	}()

	emit(Status{State: StateChecking, Message: MsgChecking})

	if e.isRepository(ctx, workDir) {
		return e.ensureSubmodules(ctx, workDir, emit)
	}

	return e.clone(ctx, url, branch, workDir, emit)
}

// isRepository reports whether workDir is the top level of a work tree. A
// directory nested inside some other repository prints a non-empty prefix
// after "true" and counts as absent.
func (e *Engine) isRepository(ctx context.Context, workDir string) bool {
	res := e.exec.Execute(ctx, "git -C "+wslkit.Quote(workDir)+" rev-parse --is-inside-work-tree --show-prefix")

	return res.Success && strings.TrimSpace(res.Output) == "true"
}

func (e *Engine) ensureSubmodules(ctx context.Context, workDir string, emit func(Status) Status) Status {
	emit(Status{State: StateSubmodulesChecking, Message: MsgFound})

	res := e.exec.Execute(ctx, "git -C "+wslkit.Quote(workDir)+" submodule status")
	if res.Success && submodulesInitialized(res.Output) {
		return emit(Status{State: StateReady, Message: MsgReady})
	}

	emit(Status{State: StateSubmodulesInitializing, Message: MsgInitializing})

	res = e.exec.Execute(ctx, "git -C "+wslkit.Quote(workDir)+" submodule update --init --recursive")
	if !res.Success {
		return emit(failed("Failed to initialize submodules: ", reason(res)))
	}

	return emit(Status{State: StateReady, Message: MsgSubmodulesInitialized})
}

func (e *Engine) clone(ctx context.Context, url, branch, workDir string, emit func(Status) Status) Status {
	emit(Status{State: StateCloningInProgress, Message: MsgCloning})

	if strings.TrimSpace(url) == "" {
		return emit(failed("Failed to clone repository: ", "repository URL is empty"))
	}

	if strings.TrimSpace(branch) == "" {
		branch = DefaultBranch
	}

	command := fmt.Sprintf("git clone --branch %s --recurse-submodules %s %s",
		wslkit.Quote(branch), wslkit.Quote(url), wslkit.Quote(workDir))

	res := e.exec.Execute(ctx, command)
	if !res.Success {
		return emit(failed("Failed to clone repository: ", reason(res)))
	}

	return emit(Status{State: StateReady, Message: MsgCloned})
}

// submodulesInitialized reports whether "git submodule status" lists no
// uninitialised submodule. Those lines start with "-".
func submodulesInitialized(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "-") {
			return false
		}
	}

	return true
}

func reason(res wslkit.CommandResult) string {
	if msg := strings.TrimSpace(res.Error); msg != "" {
		return msg
	}

	if out := strings.TrimSpace(res.Output); out != "" {
		return out
	}

	return "exit code " + strconv.Itoa(res.ExitCode)
}

package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ruffel/wslkit"
)

// Process implements wslkit.Process for local command execution.
type Process struct {
	env     *Environment
	cmd     *wslkit.Command
	execCmd *exec.Cmd

	result *wslkit.Result
	mu     sync.RWMutex
	done   chan struct{}
	closed bool
}

// Wait blocks until the command completes.
// It returns a wslkit.ExitError if the command finished with a non-zero exit code,
// or a different error if the wait itself failed.
func (p *Process) Wait() error {
	p.mu.RLock()

	if p.closed {
		p.mu.RUnlock()

		return fmt.Errorf("cannot wait on process %q: already closed", p.cmd.String())
	}

	if p.done == nil {
		p.mu.RUnlock()

		return fmt.Errorf("cannot wait on process %q: not started", p.cmd.String())
	}

	p.mu.RUnlock()

	<-p.done

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.result.Error == nil {
		return nil
	}

	exitErr := &exec.ExitError{}
	if errors.As(p.result.Error, &exitErr) {
		return &wslkit.ExitError{
			Command:  p.cmd,
			ExitCode: exitErr.ExitCode(),
			Cause:    p.result.Error,
		}
	}

	return p.result.Error
}

// Result returns the final metadata of the command execution.
// It returns an empty result if the process is still running or hasn't started.
func (p *Process) Result() *wslkit.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.result == nil {
		return &wslkit.Result{}
	}

	return &wslkit.Result{
		ExitCode: p.result.ExitCode,
		Duration: p.result.Duration,
		Error:    p.result.Error,
	}
}

// Signal sends an OS signal to the running process.
func (p *Process) Signal(sig os.Signal) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("cannot signal process %q: already closed", p.cmd.String())
	}

	if p.execCmd == nil || p.execCmd.Process == nil {
		return fmt.Errorf("cannot signal process %q: not started", p.cmd.String())
	}

	return p.execCmd.Process.Signal(sig)
}

// Close releases resources associated with the process.
// If the process is still running, its whole process group is killed.
func (p *Process) Close() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return nil
	}

	shouldKill := p.execCmd != nil && p.execCmd.Process != nil && p.done != nil
	done := p.done
	p.closed = true
	p.mu.Unlock()

	// Kill and wait outside of lock to avoid deadlock
	if shouldKill {
		select {
		case <-done:
		default:
			if p.execCmd.Process.Pid > 0 {
				_ = killProcessGroup(p.execCmd.Process.Pid)
			}

			<-done
		}
	}

	return nil
}

func (p *Process) start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("cannot start process %q: already closed", p.cmd.String())
	}

	p.execCmd = exec.CommandContext(ctx, p.cmd.Cmd, p.cmd.Args...)
	p.execCmd.Dir = p.cmd.Dir

	if len(p.cmd.Env) > 0 {
		p.execCmd.Env = append(os.Environ(), p.cmd.Env...)
	}

	setProcessGroup(p.execCmd)

	// A cancelled launcher must not leave its subsystem children behind.
	p.execCmd.Cancel = func() error {
		return killProcessGroup(p.execCmd.Process.Pid)
	}

	p.execCmd.Stdout = p.cmd.Stdout
	p.execCmd.Stderr = p.cmd.Stderr
	p.execCmd.Stdin = p.cmd.Stdin

	startTime := time.Now()

	if err := p.execCmd.Start(); err != nil {
		return err
	}

	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		defer p.env.decrementActive()

		err := p.execCmd.Wait()
		duration := time.Since(startTime)

		exitCode := 0
		if p.execCmd.ProcessState != nil {
			exitCode = p.execCmd.ProcessState.ExitCode()
		}

		p.mu.Lock()
		p.result = &wslkit.Result{
			ExitCode: exitCode,
			Duration: duration,
			Error:    err,
		}
		p.mu.Unlock()
	}()

	return nil
}

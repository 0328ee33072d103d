package mock

import (
	"context"
	"os"

	"github.com/ruffel/wslkit"
	"github.com/stretchr/testify/mock"
)

// Environment implements a mock wslkit.Environment using testify/mock.
type Environment struct {
	mock.Mock
}

var _ wslkit.Environment = (*Environment)(nil)

// New creates a new mock environment.
func New() *Environment {
	return &Environment{}
}

// Run mocks running a command to completion.
func (m *Environment) Run(ctx context.Context, cmd *wslkit.Command) (*wslkit.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*wslkit.Result), args.Error(1)
}

// Start mocks starting a command asynchronously.
func (m *Environment) Start(ctx context.Context, cmd *wslkit.Command) (wslkit.Process, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(wslkit.Process), args.Error(1)
}

// TargetOS mocks returning the target operating system.
func (m *Environment) TargetOS() wslkit.TargetOS {
	return m.Called().Get(0).(wslkit.TargetOS)
}

// Close mocks closing the environment.
func (m *Environment) Close() error {
	return m.Called().Error(0)
}

// LookPath mocks resolving an executable path.
func (m *Environment) LookPath(ctx context.Context, file string) (string, error) {
	args := m.Called(ctx, file)

	return args.String(0), args.Error(1)
}

// Process implements a mock wslkit.Process using testify/mock.
type Process struct {
	mock.Mock
}

var _ wslkit.Process = (*Process)(nil)

// Wait mocks waiting for the process to complete.
func (m *Process) Wait() error {
	return m.Called().Error(0)
}

// Result mocks returning the process result.
func (m *Process) Result() *wslkit.Result {
	if r := m.Called().Get(0); r != nil {
		return r.(*wslkit.Result)
	}

	return nil
}

// Signal mocks sending a signal to the process.
func (m *Process) Signal(sig os.Signal) error {
	return m.Called(sig).Error(0)
}

// Close mocks closing the process.
func (m *Process) Close() error {
	return m.Called().Error(0)
}

package coordinator

import (
	"context"

	"github.com/google/uuid"
)

// Task is the future of one queued operation.
type Task[T any] struct {
	ID   uuid.UUID
	Name string

	done  chan struct{}
	value T
	err   error
}

func newTask[T any](name string) *Task[T] {
	return &Task[T]{ID: uuid.New(), Name: name, done: make(chan struct{})}
}

// Done is closed once the task has a value.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task resolves or ctx ends. The error is non-nil only
// when ctx ended first, the coordinator was closed before the task ran, or
// the operation panicked.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

func (t *Task[T]) resolve(value T, err error) {
	t.value = value
	t.err = err
	close(t.done)
}

// Package coordinator serialises every wslkit operation onto a single worker
// goroutine. Each request returns a Task future and publishes its progress on
// an event channel, so callers such as a UI never block on the subsystem.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/browse"
	"github.com/ruffel/wslkit/discovery"
	"github.com/ruffel/wslkit/dispatch"
	"github.com/ruffel/wslkit/reposync"
	"go.uber.org/zap"
)

// ErrClosed resolves tasks submitted to, or still queued in, a closed
// coordinator.
var ErrClosed = errors.New("coordinator is closed")

// Session is the SSH session the coordinator owns.
type Session interface {
	wslkit.RemoteSession
	Connect(ctx context.Context, conn wslkit.Connection) bool
	Disconnect()
}

type job struct {
	run    func(ctx context.Context)
	cancel func(err error)
}

// Coordinator owns one session and the components built on it.
type Coordinator struct {
	session    Session
	dispatcher *dispatch.Dispatcher
	discoverer *discovery.Discoverer
	browser    *browse.Browser
	engine     *reposync.Engine
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	closed       bool
	eventsClosed bool
	queue        []job
	wake         chan struct{}
	events       chan Event
	done         chan struct{}
}

// New wires the components around runner and session and starts the worker.
func New(runner wslkit.ProcessRunner, session Session, opts ...Option) *Coordinator {
	cfg := Config{Launcher: wslkit.DefaultLauncher(), EventBuffer: DefaultEventBuffer, Logger: zap.NewNop()}

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.Launcher = cfg.Launcher.WithDefaults()

	disc := discovery.New(runner,
		discovery.WithLauncher(cfg.Launcher),
		discovery.WithDefaultUser(cfg.DefaultUser),
		discovery.WithLogger(cfg.Logger.Named("discovery")),
	)

	disp := dispatch.New(runner,
		dispatch.WithSession(session),
		dispatch.WithLauncher(cfg.Launcher),
		dispatch.WithHomeResolver(disc.ResolveHomeDirectory),
		dispatch.WithLogger(cfg.Logger.Named("dispatch")),
		dispatch.WithMetrics(cfg.Metrics),
	)

	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		session:    session,
		dispatcher: disp,
		discoverer: disc,
		browser:    browse.NewBrowser(browse.NewLister(disp, cfg.Logger.Named("browse"))),
		engine: reposync.New(disp,
			reposync.WithLogger(cfg.Logger.Named("reposync")),
			reposync.WithMetrics(cfg.Metrics),
		),
		logger: cfg.Logger,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		events: make(chan Event, max(cfg.EventBuffer, 0)),
		done:   make(chan struct{}),
	}

	go c.work()

	return c
}

// Events returns the progress channel. It is closed by Close once the worker
// has stopped.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Close cancels the running task, resolves queued ones with ErrClosed and
// waits for the worker to stop. It is safe to call more than once.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done

		return
	}

	c.closed = true
	pending := c.queue
	c.queue = nil
	c.mu.Unlock()

	c.cancel()

	for _, j := range pending {
		j.cancel(ErrClosed)
	}

	c.signal()
	<-c.done
}

// Connect opens the SSH session. Later commands run over it while it is live.
func (c *Coordinator) Connect(conn wslkit.Connection) *Task[bool] {
	return submit(c, "connect", func(ctx context.Context, _ func(string)) (bool, error) {
		if !c.session.Connect(ctx, conn) {
			return false, fmt.Errorf("could not connect to %s", conn.WithDefaults().Address())
		}

		return true, nil
	})
}

// Disconnect closes the SSH session. Later commands use the local ladder.
func (c *Coordinator) Disconnect() *Task[struct{}] {
	return submit(c, "disconnect", func(context.Context, func(string)) (struct{}, error) {
		c.session.Disconnect()

		return struct{}{}, nil
	})
}

// Execute runs command over SSH or the local ladder.
func (c *Coordinator) Execute(command string) *Task[wslkit.CommandResult] {
	return submit(c, "execute", func(ctx context.Context, _ func(string)) (wslkit.CommandResult, error) {
		return commandOutcome(c.dispatcher.Execute(ctx, command))
	})
}

// CheckAvailability reports whether the local launcher answers.
func (c *Coordinator) CheckAvailability() *Task[bool] {
	return submit(c, "check-availability", func(ctx context.Context, _ func(string)) (bool, error) {
		if !c.discoverer.IsAvailable(ctx) {
			return false, errors.New("launcher not available")
		}

		return true, nil
	})
}

// Distributions lists the installed subsystem distributions.
func (c *Coordinator) Distributions() *Task[[]string] {
	return submit(c, "distributions", func(ctx context.Context, _ func(string)) ([]string, error) {
		return c.discoverer.ListDistributions(ctx), nil
	})
}

// TestConnectivity runs the connectivity probes through the dispatcher.
func (c *Coordinator) TestConnectivity() *Task[wslkit.CommandResult] {
	return submit(c, "test-connectivity", func(ctx context.Context, _ func(string)) (wslkit.CommandResult, error) {
		return commandOutcome(discovery.TestConnectivity(ctx, c.dispatcher))
	})
}

// TestHomeDirectoryExecution shows where commands run and as whom.
func (c *Coordinator) TestHomeDirectoryExecution() *Task[wslkit.CommandResult] {
	return submit(c, "test-home-execution", func(ctx context.Context, _ func(string)) (wslkit.CommandResult, error) {
		return commandOutcome(discovery.TestHomeDirectoryExecution(ctx, c.dispatcher))
	})
}

// HomeDirectory resolves $HOME over the live session, falling back to local
// discovery.
func (c *Coordinator) HomeDirectory() *Task[string] {
	return submit(c, "home-directory", func(ctx context.Context, _ func(string)) (string, error) {
		if c.session.IsConnected() {
			if home, ok := discovery.RemoteHomeDirectory(ctx, c.session); ok {
				return home, nil
			}
		}

		return c.discoverer.ResolveHomeDirectory(ctx), nil
	})
}

// Browse opens the directory picker at path.
func (c *Coordinator) Browse(path string) *Task[browse.State] {
	return submit(c, "browse", func(ctx context.Context, _ func(string)) (browse.State, error) {
		return c.browser.Open(ctx, path), nil
	})
}

// Navigate moves the open picker to path.
func (c *Coordinator) Navigate(path string) *Task[browse.State] {
	return submit(c, "navigate", func(ctx context.Context, _ func(string)) (browse.State, error) {
		return c.browser.Navigate(ctx, path), nil
	})
}

// Select closes the picker and resolves to path.
func (c *Coordinator) Select(path string) *Task[string] {
	return submit(c, "select", func(context.Context, func(string)) (string, error) {
		return c.browser.Select(path), nil
	})
}

// Sync clones or refreshes the repository in workDir. Each transition is
// published as a progress event.
func (c *Coordinator) Sync(url, branch, workDir string) *Task[reposync.Status] {
	return submit(c, "sync", func(ctx context.Context, progress func(string)) (reposync.Status, error) {
		final := c.engine.Sync(ctx, url, branch, workDir, func(s reposync.Status) {
			if !s.State.Terminal() {
				progress(s.Message)
			}
		})

		if final.State == reposync.StateFailed {
			return final, errors.New(final.Message)
		}

		return final, nil
	})
}

// commandOutcome turns a failed result into an event error while keeping the
// result as the task value.
func commandOutcome(res wslkit.CommandResult) (wslkit.CommandResult, error) {
	if res.Success {
		return res, nil
	}

	if res.Error != "" {
		return res, errors.New(res.Error)
	}

	return res, fmt.Errorf("exit code %d", res.ExitCode)
}

// submit queues fn and returns its future. An error returned by fn is
// published as a failed event; the task still resolves to the value.
func submit[T any](c *Coordinator, name string, fn func(ctx context.Context, progress func(string)) (T, error)) *Task[T] {
	task := newTask[T](name)

	var zero T

	j := job{
		run: func(ctx context.Context) {
			c.publish(task.ID, name, KindStarted, "")

			progress := func(msg string) { c.publish(task.ID, name, KindProgress, msg) }

			value, err := protect(c.logger, name, func() (T, error) { return fn(ctx, progress) })

			var panicErr *panicError
			if errors.As(err, &panicErr) {
				c.publish(task.ID, name, KindFailed, err.Error())
				task.resolve(zero, err)

				return
			}

			if err != nil {
				c.publish(task.ID, name, KindFailed, err.Error())
			} else {
				c.publish(task.ID, name, KindCompleted, "")
			}

			task.resolve(value, nil)
		},
		cancel: func(err error) {
			c.publish(task.ID, name, KindFailed, err.Error())
			task.resolve(zero, err)
		},
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		j.cancel(ErrClosed)

		return task
	}

	c.queue = append(c.queue, j)
	c.publishLocked(task.ID, name, KindQueued, "")
	c.mu.Unlock()

	c.signal()

	return task
}

func (c *Coordinator) work() {
	defer close(c.done)

	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			if c.closed {
				c.eventsClosed = true
				close(c.events)
				c.mu.Unlock()

				return
			}

			c.mu.Unlock()
			<-c.wake

			continue
		}

		j := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		j.run(c.ctx)
	}
}

func (c *Coordinator) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) publish(id uuid.UUID, task string, kind Kind, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.publishLocked(id, task, kind, msg)
}

func (c *Coordinator) publishLocked(id uuid.UUID, task string, kind Kind, msg string) {
	if c.eventsClosed {
		return
	}

	ev := Event{TaskID: id, Task: task, Kind: kind, Message: msg, Time: time.Now()}

	select {
	case c.events <- ev:
	default:
		c.logger.Debug("event dropped", zap.String("task", task), zap.String("kind", string(kind)))
	}
}

type panicError struct {
	task  string
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.task, e.value)
}

func protect[T any](logger *zap.Logger, name string, fn func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", zap.String("task", name), zap.Any("panic", r))
			err = &panicError{task: name, value: r}
		}
	}()

	return fn()
}

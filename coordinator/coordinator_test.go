package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/providers/mock"
	"github.com/ruffel/wslkit/reposync"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func connectedSession() *mock.RemoteSession {
	session := mock.NewRemoteSession()
	session.On("IsConnected").Return(true)

	return session
}

func newCoordinator(t *testing.T, runner *mock.ProcessRunner, session *mock.RemoteSession) *Coordinator {
	t.Helper()

	c := New(runner, session)
	t.Cleanup(c.Close)

	return c
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

// eventsFor reads events until one of id's terminal kinds arrives.
func eventsFor(t *testing.T, events <-chan Event, id uuid.UUID) []Event {
	t.Helper()

	var got []Event

	timeout := time.After(5 * time.Second)

	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event channel closed early")

			if ev.TaskID != id {
				continue
			}

			got = append(got, ev)

			if ev.Kind == KindCompleted || ev.Kind == KindFailed {
				return got
			}
		case <-timeout:
			require.FailNow(t, "timed out waiting for events")
		}
	}
}

// awaitKind reads events until id publishes kind.
func awaitKind(t *testing.T, events <-chan Event, id uuid.UUID, kind Kind) {
	t.Helper()

	timeout := time.After(5 * time.Second)

	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event channel closed early")

			if ev.TaskID == id && ev.Kind == kind {
				return
			}
		case <-timeout:
			require.FailNow(t, "timed out waiting for event", "kind %s", kind)
		}
	}
}

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}

	return out
}

func TestCoordinator_RunsTasksInOrder(t *testing.T) {
	t.Parallel()

	session := connectedSession()

	var (
		mu    sync.Mutex
		order []string
	)

	release := make(chan struct{})

	session.On("Execute", tmock.Anything, tmock.Anything).Run(func(args tmock.Arguments) {
		if args.String(1) == "first" {
			<-release
		}

		mu.Lock()
		order = append(order, args.String(1))
		mu.Unlock()
	}).Return(wslkit.Succeeded("ok"))

	c := newCoordinator(t, mock.NewProcessRunner(), session)

	first := c.Execute("first")
	second := c.Execute("second")
	third := c.Execute("third")

	select {
	case <-third.Done():
		t.Fatal("third task finished before the first was released")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	for _, task := range []*Task[wslkit.CommandResult]{first, second, third} {
		res, err := task.Wait(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, "ok", res.Output)
	}

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestTask_WaitHonoursContext(t *testing.T) {
	t.Parallel()

	session := connectedSession()
	release := make(chan struct{})

	session.On("Execute", tmock.Anything, "sleep").Run(func(tmock.Arguments) { <-release }).Return(wslkit.Succeeded(""))

	c := newCoordinator(t, mock.NewProcessRunner(), session)
	task := c.Execute("sleep")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := task.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)

	_, err = task.Wait(waitCtx(t))
	require.NoError(t, err)
}

func TestCoordinator_ExecuteEvents(t *testing.T) {
	t.Parallel()

	session := connectedSession()
	session.On("Execute", tmock.Anything, "whoami").Return(wslkit.Succeeded("dev\n"))
	session.On("Execute", tmock.Anything, "false").Return(wslkit.NewCommandResult("", "", 1))

	c := newCoordinator(t, mock.NewProcessRunner(), session)

	ok := c.Execute("whoami")
	got := eventsFor(t, c.Events(), ok.ID)
	assert.Equal(t, []Kind{KindQueued, KindStarted, KindCompleted}, kinds(got))
	assert.Equal(t, "execute", got[0].Task)
	assert.False(t, got[0].Time.IsZero())

	bad := c.Execute("false")
	got = eventsFor(t, c.Events(), bad.ID)
	assert.Equal(t, []Kind{KindQueued, KindStarted, KindFailed}, kinds(got))
	assert.Equal(t, "exit code 1", got[2].Message)

	// A failed command still resolves to its result.
	res, err := bad.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
}

func TestCoordinator_Connect(t *testing.T) {
	t.Parallel()

	conn := wslkit.Connection{Host: "devbox", Username: "dev", Password: "pw"}

	session := mock.NewRemoteSession()
	session.On("Connect", tmock.Anything, conn).Return(false).Once()
	session.On("Connect", tmock.Anything, conn).Return(true).Once()
	session.On("Disconnect").Return().Once()

	c := newCoordinator(t, mock.NewProcessRunner(), session)

	failed := c.Connect(conn)
	got := eventsFor(t, c.Events(), failed.ID)
	assert.Equal(t, KindFailed, got[len(got)-1].Kind)
	assert.Equal(t, "could not connect to devbox:22", got[len(got)-1].Message)

	ok, err := failed.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Connect(conn).Wait(waitCtx(t))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.Disconnect().Wait(waitCtx(t))
	require.NoError(t, err)

	session.AssertExpectations(t)
}

func TestCoordinator_RecoversPanics(t *testing.T) {
	t.Parallel()

	session := connectedSession()
	session.On("Connect", tmock.Anything, tmock.Anything).Run(func(tmock.Arguments) {
		panic("boom")
	})
	session.On("Execute", tmock.Anything, "pwd").Return(wslkit.Succeeded("/home/dev"))

	c := newCoordinator(t, mock.NewProcessRunner(), session)

	_, err := c.Connect(wslkit.Connection{Host: "devbox", Username: "dev", Password: "pw"}).Wait(waitCtx(t))
	require.Error(t, err)
	assert.Equal(t, "task connect panicked: boom", err.Error())

	// The worker survives.
	res, err := c.Execute("pwd").Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "/home/dev", res.Output)
}

func TestCoordinator_SyncPublishesProgress(t *testing.T) {
	t.Parallel()

	session := connectedSession()
	session.On("Execute", tmock.Anything, "git -C '/home/dev/rom' rev-parse --is-inside-work-tree --show-prefix").
		Return(wslkit.Succeeded("true\n\n"))
	session.On("Execute", tmock.Anything, "git -C '/home/dev/rom' submodule status").
		Return(wslkit.Succeeded(" 3f2a1b0 lib/core (v1)\n"))

	c := newCoordinator(t, mock.NewProcessRunner(), session)

	task := c.Sync("https://example.com/rom.git", "main", "/home/dev/rom")
	got := eventsFor(t, c.Events(), task.ID)

	assert.Equal(t, []Kind{KindQueued, KindStarted, KindProgress, KindProgress, KindCompleted}, kinds(got))
	assert.Equal(t, reposync.MsgChecking, got[2].Message)
	assert.Equal(t, reposync.MsgFound, got[3].Message)

	status, err := task.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, reposync.Status{State: reposync.StateReady, Message: reposync.MsgReady}, status)
}

func TestCoordinator_BrowseAndSelect(t *testing.T) {
	t.Parallel()

	listing := "total 8\n" +
		"drwxr-xr-x 3 dev dev 4096 Jan  1 10:00 .\n" +
		"drwxr-xr-x 4 dev dev 4096 Jan  1 10:00 ..\n" +
		"drwxr-xr-x 2 dev dev 4096 Jan  1 10:00 rom\n"

	session := connectedSession()
	session.On("Execute", tmock.Anything, "ls -la '/home/dev'").Return(wslkit.Succeeded(listing))

	c := newCoordinator(t, mock.NewProcessRunner(), session)

	state, err := c.Browse("/home/dev").Wait(waitCtx(t))
	require.NoError(t, err)
	assert.True(t, state.IsOpen)
	require.Len(t, state.Entries, 1)
	assert.Equal(t, "/home/dev/rom", state.Entries[0].Path)

	chosen, err := c.Select(state.Entries[0].Path).Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/rom", chosen)
}

func TestCoordinator_LocalDiscovery(t *testing.T) {
	t.Parallel()

	runner := mock.NewProcessRunner()
	runner.OnArgs("wsl", "--version").Return(mock.Buffered("WSL version: 2.3.26.0\n", 0), nil)
	runner.OnArgs("wsl", "--list", "--verbose").Return(mock.Buffered(
		"  NAME      STATE           VERSION\n* Ubuntu    Running         2\n  Debian    Stopped         2\n", 0), nil)

	c := newCoordinator(t, runner, mock.NewRemoteSession())

	available, err := c.CheckAvailability().Wait(waitCtx(t))
	require.NoError(t, err)
	assert.True(t, available)

	distros, err := c.Distributions().Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ubuntu", "Debian"}, distros)
}

func TestCoordinator_Close(t *testing.T) {
	t.Parallel()

	session := connectedSession()
	release := make(chan struct{})
	session.On("Execute", tmock.Anything, "running").Run(func(tmock.Arguments) { <-release }).Return(wslkit.Succeeded("done"))

	c := New(mock.NewProcessRunner(), session)

	running := c.Execute("running")
	awaitKind(t, c.Events(), running.ID, KindStarted)

	queued := c.Execute("queued")

	closed := make(chan struct{})

	go func() {
		c.Close()
		close(closed)
	}()

	_, err := queued.Wait(waitCtx(t))
	require.ErrorIs(t, err, ErrClosed)

	close(release)

	res, err := running.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "done", res.Output)

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	_, err = c.Execute("late").Wait(waitCtx(t))
	require.ErrorIs(t, err, ErrClosed)

	assert.NotPanics(t, c.Close)

	for range c.Events() {
	}
}

func TestCoordinator_HomeDirectory(t *testing.T) {
	t.Parallel()

	session := connectedSession()
	session.On("Execute", tmock.Anything, "echo $HOME").Return(wslkit.Succeeded("/home/dev\n"))
	session.On("Execute", tmock.Anything, "pwd").Return(wslkit.Succeeded("/home/dev\n"))

	c := newCoordinator(t, mock.NewProcessRunner(), session)

	home, err := c.HomeDirectory().Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "/home/dev", home)

	res, err := c.TestHomeDirectoryExecution().Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "/home/dev\n", res.Output)
}

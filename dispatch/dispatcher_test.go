package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/metrics"
	"github.com/ruffel/wslkit/providers/mock"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func staticHome(home string) HomeResolver {
	return func(context.Context) string { return home }
}

// expectLadder wires every strategy invocation for command; the strategy at
// index succeedAt exits 0 with out and all earlier ones fail. A negative
// index makes every strategy fail.
func expectLadder(r *mock.ProcessRunner, command string, succeedAt int, out string) {
	l := wslkit.DefaultLauncher()

	for i, s := range ladder {
		cmd := s.build(l, "/home/dev", command)
		call := r.OnArgs(cmd.Cmd, cmd.Args...)

		switch {
		case i == succeedAt:
			call.Return(mock.Buffered(out, 0), nil).Once()
		case i%2 == 0:
			call.Return(mock.Failed("", 1)).Once()
		default:
			call.Return(nil, mock.SpawnError(cmd.Cmd)).Once()
		}
	}
}

func TestLadder_Invocations(t *testing.T) {
	t.Parallel()

	l := wslkit.DefaultLauncher()

	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{name: StrategyBashHome, command: "ls -la", want: []string{"wsl", "bash", "-c", "cd '/home/dev' && ls -la"}},
		{name: StrategyShHome, command: "ls -la", want: []string{"wsl", "sh", "-c", "cd '/home/dev' && ls -la"}},
		{name: StrategyBashTilde, command: "ls -la", want: []string{"wsl", "bash", "-c", "cd ~ && ls -la"}},
		{name: StrategyBashWhoami, command: "ls -la", want: []string{"wsl", "bash", "-c", "cd /home/$(whoami) && ls -la"}},
		{name: StrategyPassthrough, command: `git log "--format=%h %s"`, want: []string{"wsl", "git", "log", "--format=%h %s"}},
		{name: StrategyCmd, command: "ls -la", want: []string{"cmd", "/c", "wsl ls -la"}},
		{name: StrategyPowerShell, command: "ls -la", want: []string{"powershell", "-Command", "wsl ls -la"}},
	}

	require.Len(t, tests, len(ladder))

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := ladder[i]
			assert.Equal(t, tt.name, s.name)

			cmd := s.build(l, "/home/dev", tt.command)
			assert.Equal(t, tt.want, append([]string{cmd.Cmd}, cmd.Args...))
		})
	}
}

func TestLadder_PassthroughUnparsable(t *testing.T) {
	t.Parallel()

	cmd := ladder[4].build(wslkit.DefaultLauncher(), "", `echo "unterminated`)
	assert.Equal(t, []string{`echo "unterminated`}, cmd.Args)
}

func TestStrategyNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"bash-home", "sh-home", "bash-tilde", "bash-whoami", "passthrough", "cmd", "powershell",
	}, StrategyNames())
}

func TestDispatcher_LadderStopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	for k := range ladder {
		t.Run(ladder[k].name, func(t *testing.T) {
			t.Parallel()

			runner := mock.NewProcessRunner()
			expectLadder(runner, "whoami", k, "dev\n")

			d := New(runner, WithHomeResolver(staticHome("/home/dev")))
			res := d.Execute(context.Background(), "whoami")

			assert.Equal(t, wslkit.Succeeded("dev\n"), res)
			runner.AssertNumberOfCalls(t, "RunBuffered", k+1)
		})
	}
}

func TestDispatcher_AllStrategiesFail(t *testing.T) {
	t.Parallel()

	runner := mock.NewProcessRunner()
	expectLadder(runner, "pwd", -1, "")

	d := New(runner, WithHomeResolver(staticHome("/home/dev")))
	res := d.Execute(context.Background(), "pwd")

	assert.Equal(t, wslkit.CommandResult{
		Error:    "all launcher strategies failed for: pwd",
		ExitCode: -1,
	}, res)
	runner.AssertNumberOfCalls(t, "RunBuffered", len(ladder))
}

func TestDispatcher_ReturnsMergedOutput(t *testing.T) {
	t.Parallel()

	runner := mock.NewProcessRunner()
	runner.On("RunBuffered", tmock.Anything, tmock.Anything).Return(&wslkit.BufferedResult{
		Stdout:   []byte("out\n"),
		Stderr:   []byte("warn\n"),
		Combined: []byte("out\nwarn\n"),
	}, nil)

	d := New(runner, WithHomeResolver(staticHome("/home/dev")))
	assert.Equal(t, "out\nwarn\n", d.Execute(context.Background(), "make").Output)
}

func TestDispatcher_SessionPath(t *testing.T) {
	t.Parallel()

	t.Run("connected session is used exactly once", func(t *testing.T) {
		t.Parallel()

		for _, remote := range []wslkit.CommandResult{
			wslkit.Succeeded("/home/dev"),
			wslkit.NewCommandResult("", "permission denied", 1),
			wslkit.NotConnected(),
		} {
			runner := mock.NewProcessRunner()
			session := mock.NewRemoteSession()
			session.On("IsConnected").Return(true)
			session.On("Execute", tmock.Anything, "pwd").Return(remote).Once()

			d := New(runner, WithSession(session), WithHomeResolver(staticHome("/home/dev")))

			assert.Equal(t, remote, d.Execute(context.Background(), "pwd"))
			session.AssertNumberOfCalls(t, "Execute", 1)
			runner.AssertNotCalled(t, "RunBuffered", tmock.Anything, tmock.Anything)
		}
	})

	t.Run("disconnected session is never executed", func(t *testing.T) {
		t.Parallel()

		runner := mock.NewProcessRunner()
		expectLadder(runner, "pwd", 0, "/home/dev\n")

		session := mock.NewRemoteSession()
		session.On("IsConnected").Return(false)

		d := New(runner, WithSession(session), WithHomeResolver(staticHome("/home/dev")))

		assert.True(t, d.Execute(context.Background(), "pwd").Success)
		session.AssertNotCalled(t, "Execute", tmock.Anything, tmock.Anything)
	})

	t.Run("state is read per call", func(t *testing.T) {
		t.Parallel()

		runner := mock.NewProcessRunner()
		expectLadder(runner, "pwd", 0, "/home/dev\n")

		session := mock.NewRemoteSession()
		session.On("IsConnected").Return(true).Once()
		session.On("IsConnected").Return(false).Once()
		session.On("Execute", tmock.Anything, "pwd").Return(wslkit.Succeeded("remote")).Once()

		d := New(runner, WithSession(session), WithHomeResolver(staticHome("/home/dev")))

		assert.Equal(t, "remote", d.Execute(context.Background(), "pwd").Output)
		assert.Equal(t, "/home/dev\n", d.Execute(context.Background(), "pwd").Output)
		session.AssertExpectations(t)
	})
}

func TestDispatcher_HomeResolvedOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	resolve := func(context.Context) string {
		calls++

		return "/home/dev"
	}

	runner := mock.NewProcessRunner()
	runner.On("RunBuffered", tmock.Anything, tmock.Anything).Return(mock.Buffered("ok", 0), nil)

	d := New(runner, WithHomeResolver(resolve))
	d.Execute(context.Background(), "pwd")
	d.Execute(context.Background(), "ls")

	assert.Equal(t, 1, calls)
}

func TestDispatcher_DefaultHomeUsesDiscovery(t *testing.T) {
	t.Parallel()

	runner := mock.NewProcessRunner()
	runner.OnArgs("wsl", "bash", "-c", "echo $HOME").Return(mock.Buffered("/home/zoe\n", 0), nil).Once()
	runner.OnArgs("wsl", "bash", "-c", "cd '/home/zoe' && pwd").Return(mock.Buffered("/home/zoe\n", 0), nil).Once()

	d := New(runner)
	assert.Equal(t, "/home/zoe\n", d.Execute(context.Background(), "pwd").Output)
	runner.AssertExpectations(t)
}

func TestDispatcher_CancelledContext(t *testing.T) {
	t.Parallel()

	runner := mock.NewProcessRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(runner, WithHomeResolver(staticHome("/home/dev")))
	res := d.Execute(ctx, "pwd")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "cancelled")
	runner.AssertNotCalled(t, "RunBuffered", tmock.Anything, tmock.Anything)
}

func TestDispatcher_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	runner := mock.NewProcessRunner()
	expectLadder(runner, "pwd", 2, "/home/dev\n")

	d := New(runner, WithHomeResolver(staticHome("/home/dev")), WithMetrics(metrics.NewMetrics(reg)))
	d.Execute(context.Background(), "pwd")

	expected := `
# HELP wslkit_strategy_attempts_total Local launcher strategy attempts by strategy and outcome
# TYPE wslkit_strategy_attempts_total counter
wslkit_strategy_attempts_total{outcome="failure",strategy="bash-home"} 1
wslkit_strategy_attempts_total{outcome="failure",strategy="sh-home"} 1
wslkit_strategy_attempts_total{outcome="success",strategy="bash-tilde"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "wslkit_strategy_attempts_total"))
}

func TestWithLauncher(t *testing.T) {
	t.Parallel()

	runner := mock.NewProcessRunner()
	runner.OnArgs("wsl.exe", "bash", "-c", "cd '/home/dev' && pwd").Return(mock.Buffered("/home/dev", 0), nil).Once()

	d := New(runner,
		WithLauncher(wslkit.Launcher{Name: "wsl.exe"}),
		WithHomeResolver(staticHome("/home/dev")),
	)

	assert.True(t, d.Execute(context.Background(), "pwd").Success)
}

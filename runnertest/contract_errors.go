package runnertest

import (
	"strconv"

	"github.com/ruffel/wslkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	runExitErrorCode  = 13
	waitExitErrorCode = 23
)

func errorContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryErrors,
			Name:        "run-nonzero-returns-exiterror",
			Description: "Run non-zero failures return *wslkit.ExitError",
			Run: func(t T, env wslkit.Environment) {
				_, err := env.Run(t.Context(), env.TargetOS().ShellCommand(exitScript(runExitErrorCode)))
				require.Error(t, err)

				var exitErr *wslkit.ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, runExitErrorCode, exitErr.ExitCode)
			},
		},
		{
			Category:    CategoryErrors,
			Name:        "start-wait-nonzero-returns-exiterror",
			Description: "Wait non-zero failures return *wslkit.ExitError",
			Run: func(t T, env wslkit.Environment) {
				process, err := env.Start(t.Context(), env.TargetOS().ShellCommand(exitScript(waitExitErrorCode)))
				require.NoError(t, err)

				defer func() { _ = process.Close() }()

				var exitErr *wslkit.ExitError
				require.ErrorAs(t, process.Wait(), &exitErr)
				assert.Equal(t, waitExitErrorCode, exitErr.ExitCode)
			},
		},
		{
			Category:    CategoryErrors,
			Name:        "missing-binary-returns-transporterror",
			Description: "A launcher that cannot be spawned is a transport failure, not an exit code",
			Run: func(t T, env wslkit.Environment) {
				res, err := env.Run(t.Context(), wslkit.NewCommand("wslkit-definitely-missing-binary"))
				require.Error(t, err)
				assert.Nil(t, res)

				var transportErr *wslkit.TransportError
				require.ErrorAs(t, err, &transportErr)
			},
		},
	}
}

func exitScript(code int) string {
	return "exit " + strconv.Itoa(code)
}

package runnertest

import (
	"github.com/ruffel/wslkit"
	"github.com/stretchr/testify/require"
)

func environmentContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryEnvironment,
			Name:        "close-idempotent",
			Description: "Closing an environment twice is non-fatal",
			Run: func(t T, env wslkit.Environment) {
				require.NoError(t, env.Close())
				require.NoError(t, env.Close())
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-run-fails",
			Description: "Run fails with ErrEnvironmentClosed after close",
			Run: func(t T, env wslkit.Environment) {
				require.NoError(t, env.Close())

				_, err := env.Run(t.Context(), env.TargetOS().ShellCommand("echo closed"))
				require.ErrorIs(t, err, wslkit.ErrEnvironmentClosed)
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-start-fails",
			Description: "Start fails with ErrEnvironmentClosed after close",
			Run: func(t T, env wslkit.Environment) {
				require.NoError(t, env.Close())

				_, err := env.Start(t.Context(), env.TargetOS().ShellCommand("echo closed"))
				require.ErrorIs(t, err, wslkit.ErrEnvironmentClosed)
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-lookpath-fails",
			Description: "LookPath fails after close",
			Run: func(t T, env wslkit.Environment) {
				require.NoError(t, env.Close())

				_, err := env.LookPath(t.Context(), "echo")
				require.Error(t, err)
			},
		},
	}
}

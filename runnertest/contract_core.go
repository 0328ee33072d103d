package runnertest

import (
	"strings"

	"github.com/ruffel/wslkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coreContracts() []TestCase {
	return []TestCase{
		{
			Category: CategoryCore,
			Name:     "simple-echo",
			Run: func(t T, env wslkit.Environment) {
				exec := wslkit.NewExecutor(env)
				result, err := exec.RunShell(t.Context(), "echo hello")
				require.NoError(t, err)
				require.NotNil(t, result)

				assert.Equal(t, "hello", strings.TrimSpace(string(result.Stdout)))
				assert.Equal(t, 0, result.ExitCode)
			},
		},
		{
			Category:    CategoryCore,
			Name:        "split-and-combined-output",
			Description: "Stdout and stderr are captured separately and together",
			Run: func(t T, env wslkit.Environment) {
				exec := wslkit.NewExecutor(env)
				result, err := exec.RunShell(t.Context(), "echo out && echo err 1>&2")
				require.NoError(t, err)

				assert.Equal(t, "out", strings.TrimSpace(string(result.Stdout)))
				assert.Equal(t, "err", strings.TrimSpace(string(result.Stderr)))
				assert.Contains(t, string(result.Combined), "out")
				assert.Contains(t, string(result.Combined), "err")
			},
		},
	}
}

package runnertest

import (
	"github.com/ruffel/wslkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemContracts() []TestCase {
	return []TestCase{
		{
			Category: CategorySystem,
			Name:     "lookpath",
			Run: func(t T, env wslkit.Environment) {
				binary := "sh"
				if env.TargetOS() == wslkit.OSWindows {
					binary = "cmd.exe"
				}

				path, err := wslkit.NewExecutor(env).LookPath(t.Context(), binary)
				require.NoError(t, err)
				assert.NotEmpty(t, path)
			},
		},
	}
}

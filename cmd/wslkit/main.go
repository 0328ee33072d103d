// Package main is the wslkit command line: it runs commands inside the Linux
// subsystem over SSH or through the local launcher, browses directories and
// keeps a repository synchronised.
package main

import (
	"os"

	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/providers/local"
	"go.uber.org/zap"
)

func localRunner(logger *zap.Logger) (wslkit.ProcessRunner, func()) {
	env := local.New(local.WithLogger(logger))

	return wslkit.NewExecutor(env), func() { _ = env.Close() }
}

func main() {
	rootCmd, cleanup := newRootCmd(localRunner)

	err := rootCmd.Execute()

	cleanup()

	if err != nil {
		os.Exit(1)
	}
}

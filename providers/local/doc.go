// Package local provides the wslkit.Environment that spawns processes on the
// host machine. It is the transport under every local launcher strategy.
//
// It serves as a thin wrapper around the standard library's "os/exec",
// adapting it to the wslkit interfaces: spawn failures become
// *wslkit.TransportError, non-zero exits become *wslkit.ExitError, and every
// child runs in its own process group so a cancelled launcher takes its
// children down with it.
//
// Usage:
//
//	env := local.New()
//	runner := wslkit.NewExecutor(env, wslkit.WithTimeout(time.Minute))
//	res, _ := runner.RunBuffered(ctx, wslkit.NewCommand("wsl", "--version"))
//	_ = res
package local

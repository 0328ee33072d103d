package discovery

import (
	"context"
	"strings"

	"github.com/ruffel/wslkit"
)

// connectivityProbes are trivial commands ordered from most to least likely to work.
var connectivityProbes = []string{
	"pwd",
	"whoami",
	"ls",
	"echo hello",
	"/bin/echo hello",
	"which echo",
	"which bash",
	"which sh",
}

// homeExecutionProbes show where commands run and as whom.
var homeExecutionProbes = []string{
	"pwd",
	"ls -la",
	"echo 'Current user:' && whoami",
	"echo 'Home contents:' && ls ~",
}

// TestConnectivity runs trivial probes through exec until one succeeds and
// reports which one worked.
func TestConnectivity(ctx context.Context, exec wslkit.CommandExecutor) wslkit.CommandResult {
	for _, probe := range connectivityProbes {
		res := exec.Execute(ctx, probe)
		if res.Success {
			return wslkit.Succeeded("connection test successful with: " + probe + "\nOutput: " + res.Output)
		}
	}

	return wslkit.Failure("connection test failed: all test commands failed")
}

// TestHomeDirectoryExecution returns the first successful probe showing the
// working directory and user commands run with.
func TestHomeDirectoryExecution(ctx context.Context, exec wslkit.CommandExecutor) wslkit.CommandResult {
	for _, probe := range homeExecutionProbes {
		if res := exec.Execute(ctx, probe); res.Success {
			return res
		}
	}

	return wslkit.Failure("all home directory test commands failed")
}

// RemoteHomeDirectory asks exec for $HOME, typically right after an SSH connect.
func RemoteHomeDirectory(ctx context.Context, exec wslkit.CommandExecutor) (string, bool) {
	res := exec.Execute(ctx, "echo $HOME")
	if !res.Success {
		return "", false
	}

	home := strings.TrimSpace(res.Output)

	return home, home != ""
}

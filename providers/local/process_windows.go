//go:build windows

package local

import (
	"os/exec"
	"strconv"
)

// killProcessGroup terminates pid and its descendants. wsl.exe forwards to a
// service-hosted child, so /T is needed to stop the tree.
func killProcessGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}

func setProcessGroup(_ *exec.Cmd) {}

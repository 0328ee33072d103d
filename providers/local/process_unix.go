//go:build !windows

package local

import (
	"os/exec"
	"syscall"
)

// killProcessGroup sends SIGKILL to every member of the group led by pid.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// setProcessGroup places the child in its own group so a launcher and the
// shells it spawns die together.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

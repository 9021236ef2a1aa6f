//go:build unix

package exec

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts cmd in its own session so killProcessTree can signal
// the whole tree rather than just the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// killProcessTree sends SIGKILL to the process group rooted at pid.
func killProcessTree(pid int) {
	syscall.Kill(-pid, syscall.SIGKILL)
}

//go:build windows

package exec

import (
	"os/exec"
	"strconv"
)

// setProcessGroup is a no-op on Windows; killProcessTree uses taskkill's /T
// instead of a process-group signal.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessTree kills pid and its descendants via taskkill.
func killProcessTree(pid int) {
	exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}

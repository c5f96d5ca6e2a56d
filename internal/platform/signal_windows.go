//go:build windows

package platform

import (
	"os/exec"
	"syscall"
)

// killProcessGroupImpl issues TerminateProcess against the child only;
// no CTRL_C_EVENT is broadcast to its process group, and there is no
// grace period before termination.
func killProcessGroupImpl(cmd *exec.Cmd, _ syscall.Signal) error {
	return cmd.Process.Kill()
}

//go:build windows

package platform

import (
	"os/exec"
	"syscall"
)

// applyProcessGroup sets CREATE_NEW_PROCESS_GROUP so the child runs in its
// own process group (spec §4.6). Nothing sends console-control events to
// that group; interruption terminates the child via killProcessGroupImpl.
func applyProcessGroup(cmd *exec.Cmd) error {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
	return nil
}

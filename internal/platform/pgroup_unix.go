//go:build !windows

package platform

import (
	"os/exec"
	"syscall"
)

// applyProcessGroup puts the child in its own process group so that
// internal/pool can forward SIGINT/SIGTERM/SIGABRT to the whole group
// rather than just the immediate child (spec §4.6 "Signals").
func applyProcessGroup(cmd *exec.Cmd) error {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	return nil
}

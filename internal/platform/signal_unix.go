//go:build !windows

package platform

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// killProcessGroupImpl forwards sig to the negative pid (the whole
// process group) via unix.Kill, per spec §4.6's POSIX branch.
func killProcessGroupImpl(cmd *exec.Cmd, sig syscall.Signal) error {
	pgid := cmd.Process.Pid
	if err := unix.Kill(-pgid, sig); err != nil {
		// The group leader may already be gone; fall back to the direct
		// pid so a still-living child is not missed.
		return unix.Kill(pgid, sig)
	}
	return nil
}

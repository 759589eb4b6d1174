//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// ConfigureGroup places the child in its own process group so KillGroup
// reaches anything it spawns.
func ConfigureGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

const CREATE_NEW_PROCESS_GROUP = 0x00000200

// ConfigureGroup creates a new process group for the child.
func ConfigureGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: CREATE_NEW_PROCESS_GROUP}
}

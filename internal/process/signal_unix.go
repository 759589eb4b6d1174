//go:build !windows

package process

import "syscall"

const sigKill = syscall.SIGKILL

// killProcess sends a signal to a Unix process
func killProcess(pid int, signal syscall.Signal) error {
	return syscall.Kill(pid, signal)
}

// killGroup signals every process in the group led by pid.
func killGroup(pid int, signal syscall.Signal) error {
	return syscall.Kill(-pid, signal)
}

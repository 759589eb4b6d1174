//go:build windows

package process

import (
	"syscall"
)

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

const (
	PROCESS_TERMINATE = 0x0001
)

const sigKill = syscall.Signal(9)

// killProcess terminates a Windows process by PID. Windows has no signals, so
// every non-zero signal is a hard terminate.
func killProcess(pid int, signal syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	handle, err := openProcess(PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		// Already gone.
		return nil
	}
	defer closeHandle(handle)

	ret, _, err := procTerminateProcess.Call(uintptr(handle), uintptr(1))
	if ret == 0 {
		return err
	}
	return nil
}

// killGroup has no group semantics on Windows; only the leader is terminated.
func killGroup(pid int, signal syscall.Signal) error {
	return killProcess(pid, signal)
}

func openProcess(access uint32, inheritHandle bool, processID uint32) (syscall.Handle, error) {
	inherit := 0
	if inheritHandle {
		inherit = 1
	}
	ret, _, err := procOpenProcess.Call(
		uintptr(access),
		uintptr(inherit),
		uintptr(processID),
	)
	if ret == 0 {
		return 0, err
	}
	return syscall.Handle(ret), nil
}

func closeHandle(handle syscall.Handle) {
	_, _, _ = procCloseHandle.Call(uintptr(handle))
}

// Package process is the process-control collaborator of the watchdog: it
// delivers termination signals and answers questions about pids.
package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// ErrInvalidPID is returned for pids that can never name a process.
var ErrInvalidPID = errors.New("invalid pid")

// ErrGone is returned when the target exited before the signal was sent.
var ErrGone = errors.New("process already exited")

// Terminator kills applications the user gave up on.
type Terminator struct{}

// Terminate sends SIGKILL to pid. The target has already stopped answering,
// so there is no graceful stage.
func (Terminator) Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("terminate %d: %w", pid, ErrInvalidPID)
	}
	if !Alive(pid) {
		return fmt.Errorf("terminate %d: %w", pid, ErrGone)
	}
	if err := killProcess(pid, sigKill); err != nil {
		return fmt.Errorf("terminate %d: %w", pid, err)
	}
	return nil
}

// KillGroup hard-kills the process group led by pid.
func KillGroup(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	return killGroup(pid, sigKill)
}

// Alive reports whether pid currently names a process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// Name returns the executable name of pid, or "" when it cannot be read.
func Name(pid int) string {
	if pid <= 0 {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	p, err := gopsproc.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ""
	}
	return name
}

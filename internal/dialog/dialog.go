// Package dialog spawns the external not-responding dialog and reports which
// button the user pressed.
//
// The dialog binary is invoked as
//
//	<binary> --title <title> --text <text> --buttons "Terminate;Wait"
//
// and is expected to print the label of the pressed button on stdout.
package dialog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/loykin/anrwatch/internal/process"
	"github.com/loykin/anrwatch/internal/watchdog"
)

// DefaultBinary is the dialog executable looked up on PATH.
const DefaultBinary = "hyprland-dialog"

// ErrKilled is reported to the completion callback of a dialog that was killed.
var ErrKilled = errors.New("dialog killed")

// Launcher starts dialog processes.
type Launcher struct {
	Binary string
	log    *slog.Logger
}

// New returns a launcher for binary (DefaultBinary when empty).
func New(binary string, log *slog.Logger) *Launcher {
	if binary == "" {
		binary = DefaultBinary
	}
	if log == nil {
		log = slog.Default()
	}
	return &Launcher{Binary: binary, log: log}
}

// Available reports whether the binary can be found.
func (l *Launcher) Available() bool {
	_, err := exec.LookPath(l.Binary)
	return err == nil
}

// Args builds the dialog command line for req.
func Args(req watchdog.PromptRequest) []string {
	return []string{
		"--title", req.Title,
		"--text", req.Text,
		"--buttons", strings.Join(req.Choices, ";"),
	}
}

// Launch spawns the dialog. done runs on a background goroutine once the
// process exits, with the first line of its output.
func (l *Launcher) Launch(req watchdog.PromptRequest, done func(result string, err error)) (watchdog.PromptTask, error) {
	// #nosec G204
	cmd := exec.Command(l.Binary, Args(req)...)
	process.ConfigureGroup(cmd)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", l.Binary, err)
	}
	t := &Task{cmd: cmd, pid: cmd.Process.Pid, done: make(chan struct{})}
	t.running.Store(true)
	l.log.Debug("dialog spawned", "binary", l.Binary, "pid", t.pid)
	go t.wait(&out, done)
	return t, nil
}

// Task is one running dialog process.
type Task struct {
	cmd     *exec.Cmd
	pid     int
	running atomic.Bool
	killed  atomic.Bool
	once    sync.Once
	done    chan struct{}
}

func (t *Task) wait(out *bytes.Buffer, done func(string, error)) {
	err := t.cmd.Wait()
	t.running.Store(false)
	close(t.done)
	if t.killed.Load() {
		done("", ErrKilled)
		return
	}
	if err != nil {
		done("", fmt.Errorf("dialog exited: %w", err))
		return
	}
	done(firstLine(out.String()), nil)
}

func firstLine(s string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}

// PID of the dialog process.
func (t *Task) PID() int { return t.pid }

// Running reports whether the dialog process has not exited yet.
func (t *Task) Running() bool { return t.running.Load() }

// Done is closed when the process has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Kill terminates the dialog's process group. It is idempotent.
func (t *Task) Kill() {
	t.once.Do(func() {
		t.killed.Store(true)
		if t.running.Load() {
			_ = process.KillGroup(t.pid)
		}
	})
}

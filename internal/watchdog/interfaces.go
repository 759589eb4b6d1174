package watchdog

import "github.com/loykin/anrwatch/internal/surface"

// WindowSource enumerates the host's windows, mapped or not, in a stable order.
type WindowSource interface {
	Windows() []*surface.Window
}

// Prober sends a liveness probe to a client. Responses come back through
// Engine.OnResponse.
type Prober interface {
	Probe(c surface.Client)
}

// Notifier receives lifecycle notifications. Both carry the process id.
type Notifier interface {
	Unresponsive(pid int)
	Recovered(pid int)
}

// Killer delivers a termination signal to a process.
type Killer interface {
	Terminate(pid int) error
}

// Settings are re-read on every tick.
type Settings interface {
	PromptEnabled() bool
	Threshold() int
}

// PromptRequest describes the dialog shown for an unresponsive client.
type PromptRequest struct {
	Title   string
	Text    string
	Choices []string
}

// PromptTask is a running dialog.
type PromptTask interface {
	// Kill terminates the dialog process. Safe to call more than once.
	Kill()
}

// Launcher spawns dialogs. done is invoked exactly once from an arbitrary
// goroutine with the selected choice or an error.
type Launcher interface {
	Available() bool
	Launch(req PromptRequest, done func(result string, err error)) (PromptTask, error)
}

// Poster schedules fn onto the watchdog's single logical thread.
type Poster interface {
	Post(fn func()) bool
}

type nopNotifier struct{}

func (nopNotifier) Unresponsive(int) {}
func (nopNotifier) Recovered(int)    {}

// StaticSettings is a fixed Settings value.
type StaticSettings struct {
	Prompt          bool
	MissedThreshold int
}

func (s StaticSettings) PromptEnabled() bool { return s.Prompt }
func (s StaticSettings) Threshold() int      { return s.MissedThreshold }

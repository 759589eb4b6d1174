package watchdog

import (
	"weak"

	"github.com/loykin/anrwatch/internal/surface"
)

// Record is the liveness state of one client. It holds the identity weakly so
// that a vanished client turns the record defunct instead of being kept alive.
type Record struct {
	shell  weak.Pointer[surface.ShellClient]
	compat weak.Pointer[surface.CompatSurface]
	kind   surface.Kind
	id     string

	// cachedPID is captured at creation; the live identity stops answering
	// once its windows are gone.
	cachedPID int

	MissedResponses  int
	WasNotResponding bool
	DialogSaidWait   bool

	prompt promptController
}

func newRecord(c surface.Client) *Record {
	r := &Record{kind: c.Kind(), id: c.ID(), cachedPID: c.PID()}
	switch v := c.(type) {
	case *surface.ShellClient:
		r.shell = weak.Make(v)
	case *surface.CompatSurface:
		r.compat = weak.Make(v)
	}
	r.prompt.record = r
	return r
}

// client returns the identity if it is still alive.
func (r *Record) client() surface.Client {
	switch r.kind {
	case surface.KindShell:
		if c := r.shell.Value(); c != nil && !c.Destroyed() {
			return c
		}
	case surface.KindCompat:
		if s := r.compat.Value(); s != nil && !s.Destroyed() {
			return s
		}
	}
	return nil
}

// ID is the identity id the record was created for.
func (r *Record) ID() string { return r.id }

// Kind is the identity's surface kind.
func (r *Record) Kind() surface.Kind { return r.kind }

// Defunct reports whether the identity has expired.
func (r *Record) Defunct() bool { return r.client() == nil }

// PID returns the live identity's pid, falling back to the cached one.
func (r *Record) PID() int {
	if c := r.client(); c != nil {
		if pid := c.PID(); pid > 0 {
			return pid
		}
	}
	return r.cachedPID
}

// fitsWindow compares on the surface kind the window carries. A compat window
// only matches its compat surface, never a shell record.
func (r *Record) fitsWindow(w *surface.Window) bool {
	switch {
	case w.Compat != nil:
		return r.kind == surface.KindCompat && r.compat.Value() == w.Compat
	case w.Shell != nil:
		c := r.shell.Value()
		return r.kind == surface.KindShell && c != nil && c == w.Shell
	}
	return false
}

func (r *Record) fitsClient(c surface.Client) bool {
	switch v := c.(type) {
	case *surface.ShellClient:
		return r.kind == surface.KindShell && v != nil && r.shell.Value() == v
	case *surface.CompatSurface:
		return r.kind == surface.KindCompat && v != nil && r.compat.Value() == v
	}
	return false
}

// resetCycle drops transient dialog and counter state.
func (r *Record) resetCycle() {
	r.prompt.kill()
	r.MissedResponses = 0
	r.DialogSaidWait = false
}

// State is a copy of a record for reporting.
type State struct {
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	PID              int    `json:"pid"`
	MissedResponses  int    `json:"missed_responses"`
	WasNotResponding bool   `json:"was_not_responding"`
	DialogSaidWait   bool   `json:"dialog_said_wait"`
	NotResponding    bool   `json:"not_responding"`
	PromptRunning    bool   `json:"prompt_running"`
	Defunct          bool   `json:"defunct"`
}

func (r *Record) state() State {
	return State{
		ID:               r.id,
		Kind:             r.kind.String(),
		PID:              r.PID(),
		MissedResponses:  r.MissedResponses,
		WasNotResponding: r.WasNotResponding,
		DialogSaidWait:   r.DialogSaidWait,
		PromptRunning:    r.prompt.isRunning(),
		Defunct:          r.Defunct(),
	}
}

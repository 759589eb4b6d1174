package surface

// Window is a toplevel owned by exactly one client. Compat windows carry a
// CompatSurface, shell windows carry the ShellClient that created them.
//
// Window is not synchronized; it is only touched from the watchdog loop.
type Window struct {
	ID     string
	Title  string
	Class  string
	Mapped bool
	Shell  *ShellClient
	Compat *CompatSurface

	notRespondingTint float32
}

// Owner returns the identity the window belongs to, or nil for a window with
// no recognized owner.
func (w *Window) Owner() Client {
	switch {
	case w.Compat != nil:
		return w.Compat
	case w.Shell != nil:
		return w.Shell
	}
	return nil
}

// SetNotRespondingTint stores the dim intensity the renderer applies.
func (w *Window) SetNotRespondingTint(v float32) { w.notRespondingTint = v }

// NotRespondingTint returns the last intensity written by the watchdog.
func (w *Window) NotRespondingTint() float32 { return w.notRespondingTint }

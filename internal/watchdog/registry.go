package watchdog

import (
	"github.com/loykin/anrwatch/internal/surface"
)

// Registry is the set of tracked records, in creation order.
type Registry struct {
	records []*Record
	deps    *promptDeps
}

func newRegistry(deps *promptDeps) *Registry {
	return &Registry{deps: deps}
}

// Resolve finds the record owning the window's client.
func (g *Registry) Resolve(w *surface.Window) *Record {
	if w == nil {
		return nil
	}
	for _, r := range g.records {
		if r.fitsWindow(w) {
			return r
		}
	}
	return nil
}

// ResolveClient finds the record for a client identity.
func (g *Registry) ResolveClient(c surface.Client) *Record {
	if c == nil {
		return nil
	}
	for _, r := range g.records {
		if r.fitsClient(c) {
			return r
		}
	}
	return nil
}

// Ensure returns the window's record, creating it when the client is new.
// Windows without a live owner are not tracked.
func (g *Registry) Ensure(w *surface.Window) (*Record, bool) {
	if r := g.Resolve(w); r != nil {
		return r, false
	}
	owner := w.Owner()
	if owner == nil || owner.Destroyed() {
		return nil, false
	}
	r := newRecord(owner)
	r.prompt.deps = g.deps
	g.records = append(g.records, r)
	return r, true
}

// OnWindowClosed re-arms detection for the window's client: a stale dialog is
// discarded and any remaining sibling windows start a fresh cycle.
func (g *Registry) OnWindowClosed(w *surface.Window) *Record {
	r := g.Resolve(w)
	if r == nil {
		return nil
	}
	r.resetCycle()
	return r
}

// Prune removes defunct records, killing their dialogs first. Records with a
// live identity are never removed.
func (g *Registry) Prune() int {
	kept := g.records[:0]
	removed := 0
	for _, r := range g.records {
		if r.Defunct() {
			r.prompt.kill()
			removed++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(g.records); i++ {
		g.records[i] = nil
	}
	g.records = kept
	return removed
}

// Len is the number of tracked records.
func (g *Registry) Len() int { return len(g.records) }

// Records returns the tracked records. The slice must not be retained.
func (g *Registry) Records() []*Record { return g.records }

// Package host is the bridge between a compositor and the watchdog. The
// compositor mirrors its clients and toplevels into a Table over the HTTP
// API; the watchdog enumerates windows from it and asks it to probe clients.
package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/loykin/anrwatch/internal/surface"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
	ErrInvalid  = errors.New("invalid argument")
)

// Table holds the live clients and windows. The maps are guarded by mu;
// window fields are written only from the watchdog loop (or under mu when no
// loop is running).
type Table struct {
	mu      sync.Mutex
	clients map[string]surface.Client
	windows map[string]*surface.Window
	order   []*surface.Window
}

func NewTable() *Table {
	return &Table{
		clients: make(map[string]surface.Client),
		windows: make(map[string]*surface.Window),
	}
}

// AddClient registers a new identity of the given kind.
func (t *Table) AddClient(id string, kind surface.Kind, pid int) (surface.Client, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: client id required", ErrInvalid)
	}
	if pid < 0 {
		return nil, fmt.Errorf("%w: negative pid", ErrInvalid)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.clients[id]; ok {
		return nil, fmt.Errorf("client %s: %w", id, ErrExists)
	}
	var c surface.Client
	switch kind {
	case surface.KindShell:
		c = surface.NewShellClient(id, pid)
	case surface.KindCompat:
		c = surface.NewCompatSurface(id, pid)
	default:
		return nil, fmt.Errorf("%w: kind %v", ErrInvalid, kind)
	}
	t.clients[id] = c
	return c, nil
}

// Client looks up a registered identity.
func (t *Table) Client(id string) (surface.Client, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clients[id]
	return c, ok
}

// RemoveClient unregisters the identity and drops every window it owns. The
// identity is returned undestroyed together with its windows so the caller
// can close them before tearing the identity down with Destroy.
func (t *Table) RemoveClient(id string) (surface.Client, []*surface.Window, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clients[id]
	if !ok {
		return nil, nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	delete(t.clients, id)
	var owned []*surface.Window
	kept := t.order[:0]
	for _, w := range t.order {
		if o := w.Owner(); o != nil && o == c {
			owned = append(owned, w)
			delete(t.windows, w.ID)
			continue
		}
		kept = append(kept, w)
	}
	clear(t.order[len(kept):])
	t.order = kept
	return c, owned, nil
}

// Destroy tears down an identity returned by RemoveClient.
func Destroy(c surface.Client) {
	switch v := c.(type) {
	case *surface.ShellClient:
		v.Destroy()
	case *surface.CompatSurface:
		v.Destroy()
	}
}

// OpenWindow creates a toplevel owned by the registered client clientID.
func (t *Table) OpenWindow(id, clientID, title, class string, mapped bool) (*surface.Window, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: window id required", ErrInvalid)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.windows[id]; ok {
		return nil, fmt.Errorf("window %s: %w", id, ErrExists)
	}
	c, ok := t.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}
	w := &surface.Window{ID: id, Title: title, Class: class, Mapped: mapped}
	switch v := c.(type) {
	case *surface.ShellClient:
		w.Shell = v
	case *surface.CompatSurface:
		w.Compat = v
	}
	t.windows[id] = w
	t.order = append(t.order, w)
	return w, nil
}

// Window looks up a toplevel.
func (t *Table) Window(id string) (*surface.Window, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	return w, ok
}

// CloseWindow removes the toplevel and returns it.
func (t *Table) CloseWindow(id string) (*surface.Window, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return nil, fmt.Errorf("window %s: %w", id, ErrNotFound)
	}
	delete(t.windows, id)
	for i, o := range t.order {
		if o == w {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return w, nil
}

// Patch carries optional window updates.
type Patch struct {
	Title  *string `json:"title,omitempty"`
	Class  *string `json:"class,omitempty"`
	Mapped *bool   `json:"mapped,omitempty"`
}

// Apply writes the non-nil fields of p to w.
func (t *Table) Apply(w *surface.Window, p Patch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p.Title != nil {
		w.Title = *p.Title
	}
	if p.Class != nil {
		w.Class = *p.Class
	}
	if p.Mapped != nil {
		w.Mapped = *p.Mapped
	}
}

// Windows lists every toplevel in creation order.
func (t *Table) Windows() []*surface.Window {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*surface.Window, len(t.order))
	copy(out, t.order)
	return out
}

// Counts returns the number of clients and windows.
func (t *Table) Counts() (clients, windows int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients), len(t.windows)
}

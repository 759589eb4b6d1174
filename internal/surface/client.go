package surface

import "sync/atomic"

// Kind identifies which protocol a client surface belongs to.
type Kind int

const (
	// KindShell is a native shell-protocol client (one per connection).
	KindShell Kind = iota
	// KindCompat is a surface from the embedded compatibility layer.
	KindCompat
)

func (k Kind) String() string {
	switch k {
	case KindShell:
		return "shell"
	case KindCompat:
		return "compat"
	default:
		return "unknown"
	}
}

// ParseKind maps the wire name of a kind back to its value.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "shell", "":
		return KindShell, true
	case "compat":
		return KindCompat, true
	}
	return 0, false
}

// Client is the logical identity a window belongs to. Liveness probes are
// addressed to a Client and responses are reported per Client.
type Client interface {
	ID() string
	Kind() Kind
	// PID returns the owning process id, or 0 when it can no longer be queried.
	PID() int
	// Destroyed reports whether the host has torn the object down.
	Destroyed() bool
}

// ShellClient is a shell-protocol client handle. Several windows may share one.
type ShellClient struct {
	id        string
	pid       int
	destroyed atomic.Bool
}

// NewShellClient returns a live shell client.
func NewShellClient(id string, pid int) *ShellClient {
	return &ShellClient{id: id, pid: pid}
}

func (c *ShellClient) ID() string { return c.id }
func (c *ShellClient) Kind() Kind { return KindShell }

// PID is not queryable once the connection is gone.
func (c *ShellClient) PID() int {
	if c.destroyed.Load() {
		return 0
	}
	return c.pid
}

func (c *ShellClient) Destroyed() bool { return c.destroyed.Load() }

// Destroy marks the client as gone. Weak references held elsewhere expire.
func (c *ShellClient) Destroy() { c.destroyed.Store(true) }

// CompatSurface is a compatibility-layer surface. The pid is reported by the
// layer itself and stays readable for as long as the surface exists.
type CompatSurface struct {
	id        string
	pid       int
	destroyed atomic.Bool
}

// NewCompatSurface returns a live compatibility surface.
func NewCompatSurface(id string, pid int) *CompatSurface {
	return &CompatSurface{id: id, pid: pid}
}

func (s *CompatSurface) ID() string { return s.id }
func (s *CompatSurface) Kind() Kind { return KindCompat }

func (s *CompatSurface) PID() int {
	if s.destroyed.Load() {
		return 0
	}
	return s.pid
}

func (s *CompatSurface) Destroyed() bool { return s.destroyed.Load() }

func (s *CompatSurface) Destroy() { s.destroyed.Store(true) }

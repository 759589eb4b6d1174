package host

import (
	"github.com/loykin/anrwatch/internal/events"
	"github.com/loykin/anrwatch/internal/surface"
)

// Prober turns liveness probes into "ping" events for the compositor to
// forward. The answer comes back through the pong endpoint.
type Prober struct {
	Bus *events.Bus
}

func (p Prober) Probe(c surface.Client) {
	p.Bus.Publish(events.Event{Type: events.Probe, Client: c.ID(), PID: c.PID()})
}

// Package events is the watchdog's notification bus. The watchdog publishes
// "anr" and "anrrecovered" through it; the host bridge publishes "ping" probes
// so an attached compositor can forward them to clients.
package events

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/anrwatch/internal/metrics"
)

// Type is the event name as it appears on the wire.
type Type string

const (
	// Unresponsive fires once per crossing of the missed-probe threshold.
	Unresponsive Type = "anr"
	// Recovered fires once when a flagged client answers or loses all windows.
	Recovered Type = "anrrecovered"
	// Probe asks the host to ping a client.
	Probe Type = "ping"
)

// Event is a single notification.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	PID        int       `json:"pid,omitempty"`
	Client     string    `json:"client,omitempty"`
	Process    string    `json:"process,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Data is the event payload in the compositor IPC convention: the pid as a
// decimal string for lifecycle events, the client id for probes.
func (e Event) Data() string {
	if e.Type == Probe {
		return e.Client
	}
	return strconv.Itoa(e.PID)
}

// Lifecycle reports whether the event is an anr/anrrecovered notification.
func (e Event) Lifecycle() bool {
	return e.Type == Unresponsive || e.Type == Recovered
}

// Bus fans events out to subscribers. Slow subscribers lose events rather
// than block the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	// ProcessName resolves a pid to an executable name for enrichment. Optional.
	ProcessName func(pid int) string
	log         *slog.Logger
	now         func() time.Time
}

// NewBus returns an empty bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{subs: make(map[int]chan Event), log: log, now: time.Now}
}

// Subscribe returns a channel receiving every event published after the call
// and a function that unsubscribes and closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish stamps e with an id and time and delivers it.
func (b *Bus) Publish(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = b.now().UTC()
	}
	metrics.IncNotification(string(e.Type))
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Warn("event subscriber is full, dropping event", "subscriber", id, "type", e.Type)
		}
	}
	return e
}

// Unresponsive publishes an "anr" event. It makes Bus a watchdog Notifier.
func (b *Bus) Unresponsive(pid int) {
	b.Publish(Event{Type: Unresponsive, PID: pid, Process: b.lookup(pid)})
}

// Recovered publishes an "anrrecovered" event.
func (b *Bus) Recovered(pid int) {
	b.Publish(Event{Type: Recovered, PID: pid, Process: b.lookup(pid)})
}

func (b *Bus) lookup(pid int) string {
	if b.ProcessName == nil {
		return ""
	}
	return b.ProcessName(pid)
}

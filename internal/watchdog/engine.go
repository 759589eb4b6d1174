package watchdog

import (
	"log/slog"
	"time"

	"github.com/loykin/anrwatch/internal/metrics"
	"github.com/loykin/anrwatch/internal/surface"
)

// DefaultThreshold is the number of missed probes before a client is flagged.
const DefaultThreshold = 5

// DefaultTint is the dim intensity applied to every mapped window of a tracked client.
const DefaultTint float32 = 0.2

// Engine implements the tick, response and lifecycle handling. It is not safe
// for concurrent use; every method must run on the watchdog loop.
type Engine struct {
	registry *Registry
	windows  WindowSource
	prober   Prober
	notifier Notifier
	settings Settings
	tint     float32
	log      *slog.Logger
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Windows  WindowSource
	Prober   Prober
	Notifier Notifier
	Settings Settings
	Launcher Launcher
	Poster   Poster
	Killer   Killer
	Tint     float32
	Logger   *slog.Logger
}

// NewEngine builds an engine with an empty registry.
func NewEngine(cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	settings := cfg.Settings
	if settings == nil {
		settings = StaticSettings{Prompt: true, MissedThreshold: DefaultThreshold}
	}
	tint := cfg.Tint
	if tint <= 0 {
		tint = DefaultTint
	}
	deps := &promptDeps{launcher: cfg.Launcher, poster: cfg.Poster, killer: cfg.Killer, log: log}
	return &Engine{
		registry: newRegistry(deps),
		windows:  cfg.Windows,
		prober:   cfg.Prober,
		notifier: notifier,
		settings: settings,
		tint:     tint,
		log:      log,
	}
}

// Registry exposes the record set.
func (e *Engine) Registry() *Registry { return e.registry }

// OnWindowOpened starts tracking the window's client if it is new.
func (e *Engine) OnWindowOpened(w *surface.Window) {
	if _, created := e.registry.Ensure(w); created {
		e.log.Debug("tracking client", "window", w.ID, "client", w.Owner().ID())
		metrics.SetTrackedClients(e.registry.Len())
	}
}

// OnWindowClosed resets the client's cycle; the record itself stays.
func (e *Engine) OnWindowClosed(w *surface.Window) {
	e.registry.OnWindowClosed(w)
}

// OnResponse handles a pong from c.
func (e *Engine) OnResponse(c surface.Client) {
	r := e.registry.ResolveClient(c)
	if r == nil {
		return
	}
	metrics.IncResponse()
	if r.WasNotResponding && r.MissedResponses >= e.settings.Threshold() {
		e.recovered(r)
	}
	r.MissedResponses = 0
	if r.prompt.isRunning() {
		r.prompt.kill()
	}
}

// IsNotResponding reports whether the window's client missed more probes than
// the threshold allows. It lags the unresponsive notification by one tick.
func (e *Engine) IsNotResponding(w *surface.Window) bool {
	r := e.registry.Resolve(w)
	if r == nil {
		return false
	}
	return e.isNotResponding(r)
}

func (e *Engine) isNotResponding(r *Record) bool {
	return r.MissedResponses > e.settings.Threshold()
}

// OnTick scans every record once.
func (e *Engine) OnTick() {
	start := time.Now()
	threshold := e.settings.Threshold()
	promptEnabled := e.settings.PromptEnabled()
	var windows []*surface.Window
	if e.windows != nil {
		windows = e.windows.Windows()
	}

	for _, r := range e.registry.records {
		var first *surface.Window
		count := 0
		for _, w := range windows {
			if !w.Mapped || !r.fitsWindow(w) {
				continue
			}
			count++
			if first == nil {
				first = w
			}
			w.SetNotRespondingTint(e.tint)
		}

		if count == 0 {
			if r.WasNotResponding {
				e.recovered(r)
			}
			continue
		}

		if r.MissedResponses >= threshold {
			r.WasNotResponding = true

			if !r.prompt.isRunning() && !r.DialogSaidWait {
				if r.MissedResponses == threshold {
					e.unresponsive(r)
				}
				if promptEnabled {
					r.prompt.open(first.Title, first.Class, r.PID())
				}
			}
		} else if r.prompt.isRunning() {
			r.prompt.kill()
		}

		if r.MissedResponses == 0 {
			r.DialogSaidWait = false
		}

		r.MissedResponses++

		if c := r.client(); c != nil && e.prober != nil {
			e.prober.Probe(c)
			metrics.IncProbe()
		}
	}

	if n := e.registry.Prune(); n > 0 {
		e.log.Debug("pruned defunct clients", "count", n)
	}
	metrics.SetTrackedClients(e.registry.Len())
	metrics.SetNotResponding(e.countNotResponding())
	metrics.ObserveTick(time.Since(start).Seconds())
}

func (e *Engine) countNotResponding() int {
	n := 0
	for _, r := range e.registry.records {
		if e.isNotResponding(r) {
			n++
		}
	}
	return n
}

func (e *Engine) unresponsive(r *Record) {
	pid := r.PID()
	e.log.Warn("application not responding", "client", r.id, "pid", pid, "missed", r.MissedResponses)
	e.notifier.Unresponsive(pid)
}

func (e *Engine) recovered(r *Record) {
	pid := r.PID()
	e.log.Info("application recovered", "client", r.id, "pid", pid)
	e.notifier.Recovered(pid)
	r.WasNotResponding = false
}

// Snapshot copies the state of every record.
func (e *Engine) Snapshot() []State {
	out := make([]State, 0, len(e.registry.records))
	for _, r := range e.registry.records {
		s := r.state()
		s.NotResponding = e.isNotResponding(r)
		out = append(out, s)
	}
	return out
}

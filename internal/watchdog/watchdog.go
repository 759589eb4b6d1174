package watchdog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/anrwatch/internal/surface"
)

// ErrInactive is returned by entry points when the watchdog is disabled.
var ErrInactive = errors.New("watchdog inactive")

// Config assembles a Watchdog.
type Config struct {
	Windows  WindowSource
	Prober   Prober
	Notifier Notifier
	Killer   Killer
	Launcher Launcher
	Settings Settings
	// Interval is consulted before every re-arm; nil means DefaultInterval.
	Interval   func() time.Duration
	Tint       float32
	QueueDepth int
	Logger     *slog.Logger
}

// Watchdog runs an Engine on its own loop and tick scheduler. Its methods are
// safe to call from any goroutine.
type Watchdog struct {
	loop   *Loop
	engine *Engine
	sched  *Scheduler
	active bool
	log    *slog.Logger

	mu      sync.Mutex
	state   runState
	cancel  context.CancelFunc
	stopped chan struct{}
}

type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateStopping
)

// New builds a watchdog. When the dialog launcher is not installed the
// watchdog stays inactive: Start arms nothing and hooks are ignored.
func New(cfg Config) *Watchdog {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	loop := NewLoop(cfg.QueueDepth)
	w := &Watchdog{loop: loop, log: log, stopped: make(chan struct{})}
	if cfg.Launcher == nil || !cfg.Launcher.Available() {
		log.Warn("dialog launcher missing, application-not-responding watchdog disabled")
		return w
	}
	w.active = true
	w.engine = NewEngine(EngineConfig{
		Windows:  cfg.Windows,
		Prober:   cfg.Prober,
		Notifier: cfg.Notifier,
		Settings: cfg.Settings,
		Launcher: cfg.Launcher,
		Poster:   loop,
		Killer:   cfg.Killer,
		Tint:     cfg.Tint,
		Logger:   log,
	})
	w.sched = NewScheduler(loop, cfg.Interval, w.engine.OnTick)
	return w
}

// Active reports whether the watchdog is enabled.
func (w *Watchdog) Active() bool { return w.active }

// Start launches the loop and arms the first tick. The loop does not inherit
// ctx; cancelling ctx triggers Stop. A watchdog cannot be restarted: Start
// after Stop is a no-op.
func (w *Watchdog) Start(ctx context.Context) {
	if !w.active {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateIdle {
		return
	}
	w.state = stateRunning
	lctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.loop.Run(lctx)
	w.sched.Start()
	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-lctx.Done():
		}
	}()
	w.log.Info("watchdog started")
}

// Stop cancels ticking, stops the loop and kills any open dialogs. It waits
// for a concurrent Stop to finish.
func (w *Watchdog) Stop() {
	if !w.active {
		return
	}
	w.mu.Lock()
	switch w.state {
	case stateIdle:
		w.state = stateStopping
		// close the never-started loop so Post and Do report ErrStopped
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		w.loop.Run(ctx)
		close(w.stopped)
		w.mu.Unlock()
		return
	case stateStopping:
		w.mu.Unlock()
		<-w.stopped
		return
	}
	w.state = stateStopping
	cancel := w.cancel
	w.mu.Unlock()

	w.sched.Stop()
	cancel()
	<-w.loop.Done()
	// the loop has exited, nothing else touches the registry now
	for _, r := range w.engine.registry.records {
		r.prompt.kill()
	}
	close(w.stopped)
	w.log.Info("watchdog stopped")
}

// Do runs fn on the loop with exclusive access to the engine.
func (w *Watchdog) Do(ctx context.Context, fn func(e *Engine) error) error {
	if !w.active {
		return ErrInactive
	}
	return w.loop.Call(ctx, func() error { return fn(w.engine) })
}

// OnWindowOpened queues the open hook.
func (w *Watchdog) OnWindowOpened(win *surface.Window) {
	if w.active {
		w.loop.Post(func() { w.engine.OnWindowOpened(win) })
	}
}

// OnWindowClosed queues the close hook.
func (w *Watchdog) OnWindowClosed(win *surface.Window) {
	if w.active {
		w.loop.Post(func() { w.engine.OnWindowClosed(win) })
	}
}

// OnResponse queues a pong.
func (w *Watchdog) OnResponse(c surface.Client) {
	if w.active {
		w.loop.Post(func() { w.engine.OnResponse(c) })
	}
}

// IsNotResponding queries the engine on the loop.
func (w *Watchdog) IsNotResponding(ctx context.Context, win *surface.Window) (bool, error) {
	var out bool
	err := w.Do(ctx, func(e *Engine) error {
		out = e.IsNotResponding(win)
		return nil
	})
	return out, err
}

// Snapshot returns the state of every record.
func (w *Watchdog) Snapshot(ctx context.Context) ([]State, error) {
	var out []State
	err := w.Do(ctx, func(e *Engine) error {
		out = e.Snapshot()
		return nil
	})
	return out, err
}

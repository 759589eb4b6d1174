// Package anrwatch embeds the application-not-responding watchdog: a host
// bridge that mirrors compositor clients and windows, the liveness engine
// that probes them, and the notification bus, history and metrics around it.
package anrwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/anrwatch/internal/config"
	"github.com/loykin/anrwatch/internal/dialog"
	"github.com/loykin/anrwatch/internal/events"
	"github.com/loykin/anrwatch/internal/history"
	"github.com/loykin/anrwatch/internal/history/factory"
	"github.com/loykin/anrwatch/internal/host"
	"github.com/loykin/anrwatch/internal/metrics"
	"github.com/loykin/anrwatch/internal/process"
	iapi "github.com/loykin/anrwatch/internal/server"
	"github.com/loykin/anrwatch/internal/watchdog"
)

// Re-export core types for external consumers.

type Config = config.FileConfig

type State = watchdog.State

type Event = events.Event

type HistorySink = history.Sink

// Launcher and Killer let embedders replace the dialog and SIGKILL.
type (
	Launcher = watchdog.Launcher
	Killer   = watchdog.Killer
)

// LoadConfig reads a TOML file (optional) on top of defaults and ANRWATCH_* env.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// Options customizes New. Zero values use the real dialog binary, SIGKILL and slog.Default.
type Options struct {
	Logger   *slog.Logger
	Launcher Launcher
	Killer   Killer
	// Sinks are added to the history recorder next to those built from config DSNs.
	Sinks map[string]HistorySink
}

// Daemon is an assembled watchdog with its host bridge.
type Daemon struct {
	cfg      *Config
	log      *slog.Logger
	live     *config.Live
	bus      *events.Bus
	table    *host.Table
	wd       *watchdog.Watchdog
	router   *iapi.Router
	recorder *history.Recorder

	mu       sync.Mutex
	started  bool
	unsub    func()
	recDone  chan struct{}
	recStop  context.CancelFunc
	stopOnce sync.Once
}

// New wires a daemon from cfg. Sinks named in cfg.History are opened here.
func New(cfg *Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		def, err := config.Load("")
		if err != nil {
			return nil, err
		}
		cfg = def
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = dialog.New(cfg.Watchdog.DialogBinary, log)
	}
	killer := opts.Killer
	if killer == nil {
		killer = process.Terminator{}
	}

	d := &Daemon{
		cfg:   cfg,
		log:   log,
		live:  config.NewLive(cfg.Watchdog),
		bus:   events.NewBus(log),
		table: host.NewTable(),
	}
	d.bus.ProcessName = process.Name

	if cfg.History.Enabled || len(opts.Sinks) > 0 {
		d.recorder = history.NewRecorder(cfg.History.MaxRetries, log)
		if cfg.History.Enabled {
			for _, dsn := range cfg.History.DSNs {
				sink, err := factory.NewSinkFromDSN(dsn)
				if err != nil {
					_ = d.recorder.Close()
					return nil, fmt.Errorf("history sink %s: %w", factory.SinkName(dsn), err)
				}
				d.recorder.Add(factory.SinkName(dsn), sink)
			}
		}
		for name, s := range opts.Sinks {
			d.recorder.Add(name, s)
		}
	}

	d.wd = watchdog.New(watchdog.Config{
		Windows:  d.table,
		Prober:   host.Prober{Bus: d.bus},
		Notifier: d.bus,
		Killer:   killer,
		Launcher: launcher,
		Settings: d.live,
		Interval: d.live.Interval,
		Tint:     float32(cfg.Watchdog.Tint),
		Logger:   log,
	})
	d.router = iapi.NewRouter(iapi.RouterConfig{
		Watchdog: d.wd,
		Table:    d.table,
		Bus:      d.bus,
		Settings: d.live,
		BasePath: cfg.Server.BasePath,
		Logger:   log,
	})
	return d, nil
}

// Active reports whether the dialog launcher was found and the watchdog runs.
func (d *Daemon) Active() bool { return d.wd.Active() }

// Handler returns the bridge API.
func (d *Daemon) Handler() http.Handler { return d.router.Handler() }

// Router exposes the bridge router for mounting on an existing gin engine.
func (d *Daemon) Router() *iapi.Router { return d.router }

// Subscribe attaches to the notification bus.
func (d *Daemon) Subscribe(buffer int) (<-chan Event, func()) { return d.bus.Subscribe(buffer) }

// Snapshot returns every liveness record.
func (d *Daemon) Snapshot(ctx context.Context) ([]State, error) { return d.wd.Snapshot(ctx) }

// WatchConfig reloads enable_dialog, missed_pings and interval from path on change.
func (d *Daemon) WatchConfig(path string) error { return config.Watch(path, d.live, d.log) }

// Start runs the watchdog and, when configured, the history recorder.
func (d *Daemon) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	if d.recorder != nil && d.recorder.Len() > 0 {
		queue := d.cfg.History.QueueSize
		if queue <= 0 {
			queue = config.DefaultQueueSize
		}
		ch, unsub := d.bus.Subscribe(queue)
		rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		d.unsub, d.recStop = unsub, cancel
		d.recDone = make(chan struct{})
		go func() {
			defer close(d.recDone)
			d.recorder.Run(rctx, ch)
		}()
	}
	d.wd.Start(ctx)
}

// Stop halts ticking, closes open dialogs and flushes pending history.
func (d *Daemon) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		d.wd.Stop()
		d.mu.Lock()
		unsub, stop, done := d.unsub, d.recStop, d.recDone
		d.mu.Unlock()
		if unsub != nil {
			unsub()
			select {
			case <-done:
			case <-time.After(10 * time.Second):
				d.log.Warn("history recorder did not drain in time")
			}
			stop()
		}
		if d.recorder != nil {
			err = d.recorder.Close()
		}
	})
	return err
}

// NewHTTPServer listens on addr and serves h until Shutdown.
func NewHTTPServer(addr string, h http.Handler) (*http.Server, error) {
	return iapi.NewServer(addr, h)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

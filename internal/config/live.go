package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Live publishes the current watchdog section to the tick loop.
// Reads are lock free; the watcher swaps the whole value.
type Live struct {
	p atomic.Pointer[WatchdogConfig]
}

func NewLive(c WatchdogConfig) *Live {
	l := &Live{}
	l.Store(c)
	return l
}

func (l *Live) Load() WatchdogConfig  { return *l.p.Load() }
func (l *Live) Store(c WatchdogConfig) { l.p.Store(&c) }

func (l *Live) PromptEnabled() bool     { return l.p.Load().EnableDialog }
func (l *Live) Threshold() int          { return l.p.Load().MissedPings }
func (l *Live) Interval() time.Duration { return l.p.Load().Interval }

// Watch re-reads path whenever it changes and publishes the watchdog section
// to live. Invalid edits are logged and ignored. dialog_binary and tint are
// only read at startup.
func Watch(path string, live *Live, log *slog.Logger) error {
	if path == "" {
		return fmt.Errorf("watch: no config file")
	}
	if log == nil {
		log = slog.Default()
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		fc, err := decode(v)
		if err != nil {
			log.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}
		prev := live.Load()
		next := fc.Watchdog
		next.DialogBinary = prev.DialogBinary
		next.Tint = prev.Tint
		live.Store(next)
		log.Info("watchdog settings reloaded",
			"enable_dialog", next.EnableDialog,
			"missed_pings", next.MissedPings,
			"interval", next.Interval)
	})
	v.WatchConfig()
	return nil
}

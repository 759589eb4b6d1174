package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/anrwatch/internal/dialog"
	"github.com/loykin/anrwatch/internal/history"
	"github.com/loykin/anrwatch/internal/logger"
	"github.com/loykin/anrwatch/internal/watchdog"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid config")

// EnvPrefix is prepended to environment overrides, e.g. ANRWATCH_WATCHDOG_MISSED_PINGS.
const EnvPrefix = "ANRWATCH"

const (
	DefaultServerListen  = "127.0.0.1:8090"
	DefaultBasePath      = "/api"
	DefaultMetricsListen = "127.0.0.1:9464"
	DefaultQueueSize     = 256
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Watchdog WatchdogConfig `toml:"watchdog" mapstructure:"watchdog"`
	Log      logger.Config  `toml:"log" mapstructure:"log"`
	Metrics  MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
	History  HistoryConfig  `toml:"history" mapstructure:"history"`
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
}

// WatchdogConfig is the part of the file that may change while running.
type WatchdogConfig struct {
	EnableDialog bool          `toml:"enable_dialog" mapstructure:"enable_dialog"`
	MissedPings  int           `toml:"missed_pings" mapstructure:"missed_pings"`
	Interval     time.Duration `toml:"interval" mapstructure:"interval"`
	DialogBinary string        `toml:"dialog_binary" mapstructure:"dialog_binary"`
	Tint         float64       `toml:"tint" mapstructure:"tint"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type HistoryConfig struct {
	Enabled    bool     `toml:"enabled" mapstructure:"enabled"`
	DSNs       []string `toml:"dsns" mapstructure:"dsns"`
	QueueSize  int      `toml:"queue_size" mapstructure:"queue_size"`
	MaxRetries int      `toml:"max_retries" mapstructure:"max_retries"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
	PIDFile  string `toml:"pidfile" mapstructure:"pidfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("watchdog.enable_dialog", true)
	v.SetDefault("watchdog.missed_pings", watchdog.DefaultThreshold)
	v.SetDefault("watchdog.interval", watchdog.DefaultInterval)
	v.SetDefault("watchdog.dialog_binary", dialog.DefaultBinary)
	v.SetDefault("watchdog.tint", float64(watchdog.DefaultTint))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatText)
	v.SetDefault("log.timestamps", true)
	v.SetDefault("log.source", false)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.file.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.file.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", DefaultMetricsListen)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.dsns", []string{})
	v.SetDefault("history.queue_size", DefaultQueueSize)
	v.SetDefault("history.max_retries", history.DefaultMaxRetries)

	v.SetDefault("server.listen", DefaultServerListen)
	v.SetDefault("server.base_path", DefaultBasePath)
	v.SetDefault("server.pidfile", "")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if path != "" {
		// Mitigate G304: sanitize user-provided path by cleaning it before use.
		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("toml")
	}
	return v
}

// Load reads path (optional) on top of defaults and environment overrides,
// then validates the result.
func Load(path string) (*FileConfig, error) {
	v := newViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*FileConfig, error) {
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Validate reports the first invalid setting, wrapped in ErrInvalid.
func (fc *FileConfig) Validate() error {
	if err := fc.Watchdog.Validate(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(fc.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	switch strings.ToLower(fc.Log.Format) {
	case "", logger.FormatText, logger.FormatJSON, logger.FormatColor:
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, fc.Log.Format)
	}
	if fc.Metrics.Enabled && fc.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen required when metrics are enabled", ErrInvalid)
	}
	if fc.History.Enabled {
		if len(fc.History.DSNs) == 0 {
			return fmt.Errorf("%w: history.dsns required when history is enabled", ErrInvalid)
		}
		if fc.History.QueueSize <= 0 {
			return fmt.Errorf("%w: history.queue_size must be positive", ErrInvalid)
		}
	}
	if fc.Server.Listen == "" {
		return fmt.Errorf("%w: server.listen required", ErrInvalid)
	}
	if !strings.HasPrefix(fc.Server.BasePath, "/") {
		return fmt.Errorf("%w: server.base_path must start with /", ErrInvalid)
	}
	return nil
}

func (w WatchdogConfig) Validate() error {
	if w.MissedPings < 1 {
		return fmt.Errorf("%w: watchdog.missed_pings must be at least 1", ErrInvalid)
	}
	if w.Interval <= 0 {
		return fmt.Errorf("%w: watchdog.interval must be positive", ErrInvalid)
	}
	if w.DialogBinary == "" {
		return fmt.Errorf("%w: watchdog.dialog_binary required", ErrInvalid)
	}
	if w.Tint < 0 || w.Tint > 1 {
		return fmt.Errorf("%w: watchdog.tint must be within [0,1]", ErrInvalid)
	}
	return nil
}

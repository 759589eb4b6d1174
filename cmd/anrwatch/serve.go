package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/anrwatch"
	"github.com/loykin/anrwatch/internal/logger"
)

func runServe(ctx context.Context, flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg, err := anrwatch.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if flags.Daemonize {
		logfile := flags.LogFile
		if logfile == "" {
			logfile = cfg.Log.File.Path
		}
		return daemonize(logfile)
	}

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	defer func() { _ = closer.Close() }()
	slog.SetDefault(log)

	if cfg.Server.PIDFile != "" {
		release, err := acquirePIDFile(cfg.Server.PIDFile)
		if err != nil {
			return err
		}
		defer release()
	}

	if cfg.Metrics.Enabled {
		if err := anrwatch.RegisterMetricsDefault(); err != nil {
			log.Warn("failed to register metrics", "error", err)
		}
		go func() {
			if err := anrwatch.ServeMetrics(cfg.Metrics.Listen); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	d, err := anrwatch.New(cfg, anrwatch.Options{Logger: log})
	if err != nil {
		return fmt.Errorf("failed to create watchdog: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.Start(ctx)
	if configPath != "" {
		if err := d.WatchConfig(configPath); err != nil {
			log.Warn("config reload disabled", "error", err)
		}
	}

	server, err := anrwatch.NewHTTPServer(cfg.Server.Listen, d.Handler())
	if err != nil {
		_ = d.Stop()
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	log.Info("anrwatch listening", "addr", server.Addr, "base_path", cfg.Server.BasePath, "active", d.Active())

	<-ctx.Done()
	log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", "error", err)
		_ = server.Close()
	}
	return d.Stop()
}

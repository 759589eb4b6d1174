package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/labstack/echo/v4"
	"github.com/loykin/anrwatch"
)

// Embeds the watchdog in an existing echo server. Hooks live under
// [server].base_path, /api unless configured otherwise.
func main() {
	cfg, err := anrwatch.LoadConfig(os.Getenv("ANRWATCH_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}
	d, err := anrwatch.New(cfg, anrwatch.Options{})
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	d.Start(ctx)
	defer func() { _ = d.Stop() }()

	e := echo.New()
	h := echo.WrapHandler(d.Handler())
	base := cfg.Server.BasePath
	e.Any(base, h)
	e.Any(base+"/*", h)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"active": d.Active()})
	})

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()

	log.Println("starting echo server on :8080 with base", base, "active:", d.Active())
	if err := e.Start(":8080"); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/loykin/anrwatch"
	"github.com/loykin/anrwatch/internal/dialog"
	"github.com/loykin/anrwatch/pkg/client"
)

func newAPIClient(f APIFlags) *client.Client {
	return client.New(client.Config{BaseURL: f.APIUrl, Timeout: f.APITimeout})
}

func runStatus(ctx context.Context, out io.Writer, f *StatusFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c := newAPIClient(f.APIFlags)
	if !c.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable at %s - please start daemon first with 'anrwatch serve'", f.APIUrl)
	}
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if f.JSON {
		printJSON(out, st)
		return nil
	}
	printStatus(out, st)
	return nil
}

func printStatus(out io.Writer, st client.Status) {
	state := "active"
	if !st.Active {
		state = "inactive (dialog launcher missing)"
	}
	_, _ = fmt.Fprintf(out, "watchdog: %s  threshold: %d  dialog: %t  clients: %d  windows: %d\n",
		state, st.Threshold, st.PromptEnabled, st.Clients, st.Windows)
	if len(st.Records) == 0 {
		_, _ = fmt.Fprintln(out, "no tracked clients")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CLIENT\tKIND\tPID\tMISSED\tNOT RESPONDING\tPROMPT\tWAIT")
	for _, r := range st.Records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%t\t%t\t%t\n",
			r.ID, r.Kind, r.PID, r.MissedResponses, r.NotResponding, r.PromptRunning, r.DialogSaidWait)
	}
	_ = tw.Flush()
}

func runEvents(ctx context.Context, out io.Writer, f *EventsFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c := newAPIClient(f.APIFlags)
	err := c.Events(ctx, f.Types, func(e client.Event) error {
		_, err := fmt.Fprintf(out, "%s %s %s\n", e.ReceivedAt.Format("15:04:05.000"), e.Type, e.Data)
		return err
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func runCheck(out io.Writer, path string) error {
	cfg, err := anrwatch.LoadConfig(path)
	if err != nil {
		return err
	}
	source := path
	if source == "" {
		source = "defaults"
	}
	_, _ = fmt.Fprintf(out, "config: ok (%s)\n", source)
	_, _ = fmt.Fprintf(out, "watchdog: dialog=%t missed_pings=%d interval=%s tint=%.2f\n",
		cfg.Watchdog.EnableDialog, cfg.Watchdog.MissedPings, cfg.Watchdog.Interval, cfg.Watchdog.Tint)
	_, _ = fmt.Fprintf(out, "server: %s%s\n", cfg.Server.Listen, cfg.Server.BasePath)
	if cfg.History.Enabled {
		_, _ = fmt.Fprintf(out, "history: %s\n", strings.Join(cfg.History.DSNs, ", "))
	}
	if dialog.New(cfg.Watchdog.DialogBinary, slog.Default()).Available() {
		_, _ = fmt.Fprintf(out, "dialog launcher: %s\n", cfg.Watchdog.DialogBinary)
	} else {
		_, _ = fmt.Fprintf(out, "dialog launcher: %s not found, watchdog will stay disabled\n", cfg.Watchdog.DialogBinary)
	}
	return nil
}

func printJSON(out io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	_, _ = fmt.Fprintln(out, string(b))
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/anrwatch/pkg/client"
)

func statusServer(t *testing.T, st client.Status) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sampleStatus() client.Status {
	return client.Status{
		Active:        true,
		PromptEnabled: true,
		Threshold:     5,
		Clients:       1,
		Windows:       2,
		Records: []client.Record{{
			ID: "c1", Kind: "shell", PID: 4242, MissedResponses: 6, NotResponding: true, PromptRunning: true,
		}},
	}
}

func TestStatusCommand_Table(t *testing.T) {
	srv := statusServer(t, sampleStatus())

	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"status", "--api-url", srv.URL + "/api"})
	require.NoError(t, root.Execute())

	s := out.String()
	require.Contains(t, s, "watchdog: active")
	require.Contains(t, s, "CLIENT")
	require.Contains(t, s, "4242")
	require.Contains(t, s, "c1")
}

func TestStatusCommand_JSON(t *testing.T) {
	srv := statusServer(t, sampleStatus())

	var out bytes.Buffer
	err := runStatus(context.Background(), &out, &StatusFlags{
		APIFlags: APIFlags{APIUrl: srv.URL + "/api", APITimeout: 2 * time.Second},
		JSON:     true,
	})
	require.NoError(t, err)

	var got client.Status
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, sampleStatus(), got)
}

func TestStatusCommand_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := runStatus(context.Background(), &bytes.Buffer{}, &StatusFlags{
		APIFlags: APIFlags{APIUrl: url + "/api", APITimeout: time.Second},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not reachable")
}

func TestPrintStatus_Empty(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, client.Status{Threshold: 5})
	require.Contains(t, out.String(), "inactive")
	require.Contains(t, out.String(), "no tracked clients")
}

func TestEventsCommand_PrintsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		assert.Equal(t, "anr", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, "event:anr\ndata:4242\n\n")
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runEvents(context.Background(), &out, &EventsFlags{
		APIFlags: APIFlags{APIUrl: srv.URL + "/api", APITimeout: 2 * time.Second},
		Types:    []string{"anr"},
	})
	require.NoError(t, err)
	require.Contains(t, out.String(), "anr 4242")
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anrwatch.toml")
	cfg := `
[watchdog]
missed_pings = 3
interval = "2s"
dialog_binary = "definitely-not-a-real-dialog"

[history]
enabled = true
dsns = ["sqlite://` + filepath.ToSlash(filepath.Join(dir, "h.db")) + `"]
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"check", path})
	require.NoError(t, root.Execute())

	s := out.String()
	require.Contains(t, s, "config: ok")
	require.Contains(t, s, "missed_pings=3")
	require.Contains(t, s, "interval=2s")
	require.Contains(t, s, "sqlite://")
	require.True(t, strings.Contains(s, "not found"), s)
}

func TestCheckCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[watchdog]\nmissed_pings = 0\n"), 0o644))

	root := buildRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "check"})
	require.Error(t, root.Execute())
}

func TestRootCommands(t *testing.T) {
	root := buildRoot()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "status", "events", "check"} {
		require.True(t, names[want], "missing command %s", want)
	}
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}

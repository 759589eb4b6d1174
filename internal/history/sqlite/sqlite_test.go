package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/anrwatch/internal/events"
)

func TestSQLiteSink_Integration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	sink, err := New("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	anr := events.Event{ID: "e1", Type: events.Unresponsive, PID: 4242, Process: "firefox", OccurredAt: time.Now().UTC()}
	if err := sink.Send(ctx, anr); err != nil {
		t.Fatalf("Failed to send anr event: %v", err)
	}
	recovered := events.Event{ID: "e2", Type: events.Recovered, PID: 4242, OccurredAt: time.Now().UTC()}
	if err := sink.Send(ctx, recovered); err != nil {
		t.Fatalf("Failed to send recovered event: %v", err)
	}

	n, err := sink.Count(ctx, events.Unresponsive)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 anr row, got %d", n)
	}
	n, _ = sink.Count(ctx, events.Recovered)
	if n != 1 {
		t.Fatalf("expected 1 anrrecovered row, got %d", n)
	}
}

func TestSQLiteSink_InMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	if err := sink.Send(context.Background(), events.Event{ID: "x", Type: events.Unresponsive, PID: 1, OccurredAt: time.Now()}); err != nil {
		t.Fatalf("send: %v", err)
	}
	n, err := sink.Count(context.Background(), events.Unresponsive)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 row, got %d (%v)", n, err)
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

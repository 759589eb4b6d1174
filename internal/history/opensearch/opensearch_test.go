package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loykin/anrwatch/internal/events"
)

func TestOpenSearchSink_Send(t *testing.T) {
	var receivedBody []byte
	var receivedURL string
	var receivedMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedURL = r.URL.Path
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	defer server.Close()

	sink := New(server.URL+"/", "anr-history")
	e := events.Event{ID: "ev-1", Type: events.Unresponsive, PID: 321, OccurredAt: time.Now().UTC()}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if receivedMethod != http.MethodPut {
		t.Errorf("Expected PUT method, got: %s", receivedMethod)
	}
	if receivedURL != "/anr-history/_doc/ev-1" {
		t.Errorf("unexpected path: %s", receivedURL)
	}
	var m map[string]any
	if err := json.Unmarshal(receivedBody, &m); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if m["type"] != "anr" || m["pid"].(float64) != 321 {
		t.Fatalf("unexpected payload: %v", m)
	}
}

func TestOpenSearchSink_PostWithoutID(t *testing.T) {
	var method, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	if err := New(server.URL, "idx").Send(context.Background(), events.Event{Type: events.Recovered, PID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if method != http.MethodPost || path != "/idx/_doc" {
		t.Fatalf("unexpected request %s %s", method, path)
	}
}

func TestOpenSearchSink_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := New(server.URL, "idx").Send(context.Background(), events.Event{ID: "x", Type: events.Recovered})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

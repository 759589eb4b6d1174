package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotentAndCountersWork(t *testing.T) {
	regOK.Store(false)
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	// idempotent: calling again should be no-op
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	ObserveTick(0.002)
	IncProbe()
	IncResponse()
	IncNotification("anr")
	IncPromptOpened()
	IncPromptResult("wait")
	SetTrackedClients(3)
	SetNotResponding(1)
	IncHistoryError("sqlite")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	wantNames := map[string]bool{
		"anrwatch_watchdog_tick_duration_seconds":  false,
		"anrwatch_watchdog_probes_total":           false,
		"anrwatch_watchdog_responses_total":        false,
		"anrwatch_watchdog_notifications_total":    false,
		"anrwatch_dialog_opened_total":             false,
		"anrwatch_dialog_results_total":            false,
		"anrwatch_watchdog_tracked_clients":        false,
		"anrwatch_watchdog_not_responding_clients": false,
		"anrwatch_history_send_errors_total":       false,
	}
	for _, mf := range mfs {
		n := mf.GetName()
		if _, ok := wantNames[n]; ok {
			wantNames[n] = true
			if len(mf.GetMetric()) == 0 {
				t.Fatalf("metric %s has no samples", n)
			}
		}
	}
	for n, ok := range wantNames {
		if !ok {
			t.Fatalf("expected to find metric %s", n)
		}
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	regOK.Store(false)
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	IncNotification("anrrecovered")

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != 200 {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	s := string(b)
	if !strings.Contains(s, "anrwatch_watchdog_notifications_total") {
		t.Fatalf("metrics output missing notifications_total: %s", s[:min(200, len(s))])
	}
}

func TestConcurrentIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	regOK.Store(false)
	if err := Register(reg); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncProbe()
			IncResponse()
			IncPromptResult("terminate")
		}()
	}
	wg.Wait()
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestMetricsBeforeRegister(t *testing.T) {
	originalState := regOK.Load()
	regOK.Store(false)
	defer regOK.Store(originalState)

	// These should be no-ops and not panic when called before Register
	ObserveTick(1)
	IncProbe()
	IncNotification("anr")
	SetTrackedClients(5)
	IncHistoryError("x")
}

func TestRegisterError(t *testing.T) {
	originalState := regOK.Load()
	regOK.Store(false)
	defer regOK.Store(originalState)

	err := Register(errorRegisterer{})
	if err == nil {
		t.Fatal("Register should return error from failing registerer")
	}
	if err.Error() != "test registration error" {
		t.Fatalf("unexpected error: %v", err)
	}
}

type errorRegisterer struct{}

func (errorRegisterer) Register(prometheus.Collector) error {
	return errors.New("test registration error")
}

func (errorRegisterer) MustRegister(...prometheus.Collector) {}

func (errorRegisterer) Unregister(prometheus.Collector) bool { return false }

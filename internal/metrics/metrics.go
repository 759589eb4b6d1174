package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	ticks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "anrwatch",
			Subsystem: "watchdog",
			Name:      "tick_duration_seconds",
			Help:      "Time spent scanning all tracked clients in one tick.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)
	probes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "anrwatch",
			Subsystem: "watchdog",
			Name:      "probes_total",
			Help:      "Number of liveness probes sent.",
		},
	)
	responses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "anrwatch",
			Subsystem: "watchdog",
			Name:      "responses_total",
			Help:      "Number of probe responses received from tracked clients.",
		},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anrwatch",
			Subsystem: "watchdog",
			Name:      "notifications_total",
			Help:      "Lifecycle notifications emitted, by event name.",
		}, []string{"event"},
	)
	promptsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "anrwatch",
			Subsystem: "dialog",
			Name:      "opened_total",
			Help:      "Number of not-responding dialogs spawned.",
		},
	)
	promptResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anrwatch",
			Subsystem: "dialog",
			Name:      "results_total",
			Help:      "Dialog outcomes (terminate, wait, unrecognized, error).",
		}, []string{"result"},
	)
	trackedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "anrwatch",
			Subsystem: "watchdog",
			Name:      "tracked_clients",
			Help:      "Current number of liveness records.",
		},
	)
	notResponding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "anrwatch",
			Subsystem: "watchdog",
			Name:      "not_responding_clients",
			Help:      "Clients currently past the missed-probe threshold.",
		},
	)
	historyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anrwatch",
			Subsystem: "history",
			Name:      "send_errors_total",
			Help:      "History sink writes that failed after retries.",
		}, []string{"sink"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{ticks, probes, responses, notifications, promptsOpened, promptResults, trackedClients, notResponding, historyErrors}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func ObserveTick(seconds float64) {
	if regOK.Load() {
		ticks.Observe(seconds)
	}
}

func IncProbe() {
	if regOK.Load() {
		probes.Inc()
	}
}

func IncResponse() {
	if regOK.Load() {
		responses.Inc()
	}
}

func IncNotification(event string) {
	if regOK.Load() {
		notifications.WithLabelValues(event).Inc()
	}
}

func IncPromptOpened() {
	if regOK.Load() {
		promptsOpened.Inc()
	}
}

func IncPromptResult(result string) {
	if regOK.Load() {
		promptResults.WithLabelValues(result).Inc()
	}
}

func SetTrackedClients(n int) {
	if regOK.Load() {
		trackedClients.Set(float64(n))
	}
}

func SetNotResponding(n int) {
	if regOK.Load() {
		notResponding.Set(float64(n))
	}
}

func IncHistoryError(sink string) {
	if regOK.Load() {
		historyErrors.WithLabelValues(sink).Inc()
	}
}

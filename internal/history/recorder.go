package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/loykin/anrwatch/internal/events"
	"github.com/loykin/anrwatch/internal/metrics"
)

// DefaultMaxRetries bounds the retries of a single sink write.
const DefaultMaxRetries = 3

type namedSink struct {
	name string
	sink Sink
}

// Recorder forwards lifecycle events from the bus to every sink. Writes are
// retried with exponential backoff; an event that still fails is logged and
// dropped so one broken sink never stalls the others for long.
type Recorder struct {
	sinks      []namedSink
	maxRetries uint64
	timeout    time.Duration
	log        *slog.Logger
	newBackOff func() backoff.BackOff
}

// NewRecorder returns a recorder without sinks.
func NewRecorder(maxRetries int, log *slog.Logger) *Recorder {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		maxRetries: uint64(maxRetries),
		timeout:    5 * time.Second,
		log:        log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// Add registers a sink under name (used in logs and metrics).
func (r *Recorder) Add(name string, s Sink) {
	r.sinks = append(r.sinks, namedSink{name: name, sink: s})
}

// Len is the number of registered sinks.
func (r *Recorder) Len() int { return len(r.sinks) }

// Run consumes ch until it is closed or ctx is done. Probe events are ignored.
func (r *Recorder) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if !e.Lifecycle() {
				continue
			}
			r.Record(ctx, e)
		}
	}
}

// Record writes e to every sink and returns the joined failures.
func (r *Recorder) Record(ctx context.Context, e events.Event) error {
	var errs []error
	for _, ns := range r.sinks {
		op := func() error {
			sctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return ns.sink.Send(sctx, e)
		}
		b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
		if err := backoff.Retry(op, b); err != nil {
			metrics.IncHistoryError(ns.name)
			r.log.Error("failed to record history event", "sink", ns.name, "event", e.Type, "pid", e.PID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (r *Recorder) Close() error {
	var errs []error
	for _, ns := range r.sinks {
		if c, ok := ns.sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

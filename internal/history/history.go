// Package history persists watchdog lifecycle notifications to external
// analytics stores.
package history

import (
	"context"

	"github.com/loykin/anrwatch/internal/events"
)

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e events.Event) error
}

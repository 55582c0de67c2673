// Package analytics emits product events. Emission is always best-effort:
// failures are downgraded to warnings by callers and never block the
// primary flow.
package analytics

import "context"

// Tracker records a single event for a user. Implementations must bound
// their own attempt; there is no retry.
type Tracker interface {
	Track(ctx context.Context, distinctID, event string, properties map[string]any) error
}

// Noop discards all events.
type Noop struct{}

func (Noop) Track(ctx context.Context, distinctID, event string, properties map[string]any) error {
	return nil
}

package trackerfake

import (
	"context"
	"sync"

	"github.com/draftstudio/auth-gateway/analytics"
)

var _ analytics.Tracker = (*FakeTracker)(nil)

// Event is a recorded Track call.
type Event struct {
	DistinctID string
	Name       string
	Properties map[string]any
}

// FakeTracker records events for assertions. Set Err to simulate a failing
// analytics backend.
type FakeTracker struct {
	lock   sync.Mutex
	events []Event

	Err error
}

func NewFakeTracker() *FakeTracker {
	return &FakeTracker{}
}

func (f *FakeTracker) Track(ctx context.Context, distinctID, event string, properties map[string]any) error {
	if f.Err != nil {
		return f.Err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.events = append(f.events, Event{DistinctID: distinctID, Name: event, Properties: properties})
	return nil
}

// Events returns a copy of everything recorded so far.
func (f *FakeTracker) Events() []Event {
	f.lock.Lock()
	defer f.lock.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

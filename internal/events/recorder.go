package events

import (
	"context"
	"sync"
)

// Recorder keeps published events in memory. Handy for tests and the memory store dev mode.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

// Dispatch publishes synchronously, matching the Dispatcher method set.
func (r *Recorder) Dispatch(e Event) {
	_ = r.Publish(context.Background(), e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

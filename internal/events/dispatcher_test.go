package events

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDispatcher_DeliversQueuedEventsOnClose(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(rec, 8, quietLogger())

	for i := 0; i < 5; i++ {
		d.Dispatch(Event{Type: TypeCreated, ReservationID: "r", Timestamp: time.Now()})
	}
	d.Close()

	if got := len(rec.Events()); got != 5 {
		t.Fatalf("expected 5 events, got %d", got)
	}
}

func TestDispatcher_PublishErrorIsSwallowed(t *testing.T) {
	rec := &Recorder{Err: errors.New("broker down")}
	d := NewDispatcher(rec, 1, quietLogger())
	d.Dispatch(Event{Type: TypeApproved, ReservationID: "r"})
	d.Close()

	if len(rec.Events()) != 0 {
		t.Fatalf("expected no recorded events")
	}
}

type failing struct{}

func (failing) Publish(context.Context, Event) error { return errors.New("nope") }

func TestMulti_PublishesToAllAndReturnsFirstError(t *testing.T) {
	rec := &Recorder{}
	err := Multi{failing{}, rec}.Publish(context.Background(), Event{Type: TypeRejected})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(rec.Events()) != 1 {
		t.Fatalf("expected second publisher to receive the event")
	}
}

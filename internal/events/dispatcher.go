package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher delivers events to a Publisher on a background goroutine so that
// callers never wait on (or fail because of) the notification collaborator.
type Dispatcher struct {
	pub     Publisher
	log     *logrus.Logger
	timeout time.Duration

	queue chan Event
	wg    sync.WaitGroup

	closeOnce sync.Once
}

func NewDispatcher(pub Publisher, buffer int, log *logrus.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		pub:     pub,
		log:     log,
		timeout: 5 * time.Second,
		queue:   make(chan Event, buffer),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Dispatch enqueues e. When the buffer is full the event is dropped and logged.
func (d *Dispatcher) Dispatch(e Event) {
	select {
	case d.queue <- e:
	default:
		d.log.WithFields(logrus.Fields{
			"event":         e.Type,
			"reservationId": e.ReservationID,
		}).Error("event queue full, dropping event")
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.pub.Publish(ctx, e); err != nil {
			d.log.WithFields(logrus.Fields{
				"event":         e.Type,
				"reservationId": e.ReservationID,
				"err":           err,
			}).Error("publish event failed")
		}
		cancel()
	}
}

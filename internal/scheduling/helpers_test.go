package scheduling

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"hallbooking/internal/auth"
	"hallbooking/internal/events"
	"hallbooking/internal/hall"
	"hallbooking/internal/lock"
	"hallbooking/internal/reservation"
	"hallbooking/internal/timerange"
)

const (
	hallH      = "0b7a5f0e-5b8e-4a59-9a57-6c1f4a1b2c01"
	hallClosed = "0b7a5f0e-5b8e-4a59-9a57-6c1f4a1b2c02"
)

var (
	admin = auth.Identity{ID: "admin-1", Name: "Facilities Office", Role: auth.RoleAdmin}
	alice = auth.Identity{ID: "alice", Name: "Alice", Contact: "alice@example.com", Role: auth.RoleUser}
	bob   = auth.Identity{ID: "bob", Name: "Bob", Contact: "bob@example.com", Role: auth.RoleUser}

	today = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc    *Service
	store  *reservation.MemoryStore
	halls  *hall.MemoryRepository
	events *events.Recorder
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T, locker lock.Locker) *fixture {
	t.Helper()
	if locker == nil {
		locker = lock.NewLocal(time.Second)
	}
	halls := hall.NewMemoryRepository(
		hall.Hall{ID: hallH, Name: "Hall H", Capacity: 120, Active: true},
		hall.Hall{ID: hallClosed, Name: "Old Annex", Capacity: 50, Active: false},
	)
	store := reservation.NewMemoryStore()
	rec := &events.Recorder{}
	svc := NewService(halls, store, locker, timerange.FixedClock{At: today}, rec, quietLogger(), Options{
		HorizonDays: 30,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	})
	return &fixture{svc: svc, store: store, halls: halls, events: rec}
}

func request(t *testing.T, hallID string, dates []string, from, to string) SubmitRequest {
	t.Helper()
	ds, err := timerange.ParseDates(dates)
	if err != nil {
		t.Fatalf("parse dates: %v", err)
	}
	w, err := timerange.ParseWindow(from, to)
	if err != nil {
		t.Fatalf("parse window: %v", err)
	}
	return SubmitRequest{HallID: hallID, Purpose: "guest lecture", Seats: 80, Dates: ds, Window: w}
}

func (f *fixture) submit(t *testing.T, who auth.Identity, from, to string, dates ...string) *reservation.Reservation {
	t.Helper()
	r, err := f.svc.Submit(context.Background(), who, request(t, hallH, dates, from, to))
	if err != nil {
		t.Fatalf("submit %s-%s %v: %v", from, to, dates, err)
	}
	return r
}

// flakyLocker times out the first n acquisitions.
type flakyLocker struct {
	failures atomic.Int32
	inner    lock.Locker
}

func (l *flakyLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.failures.Add(-1) >= 0 {
		return nil, lock.ErrTimeout
	}
	return l.inner.Lock(ctx, key)
}

// vanishingHalls serves the first Get and reports the hall gone afterwards, as
// if it were deleted between the pre-check and the hall lock.
type vanishingHalls struct {
	hall.Repository
	gets atomic.Int32
}

func (v *vanishingHalls) Get(ctx context.Context, id string) (*hall.Hall, error) {
	if v.gets.Add(1) > 1 {
		return nil, hall.ErrNotFound
	}
	return v.Repository.Get(ctx, id)
}

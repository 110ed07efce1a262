package reservation

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"hallbooking/internal/lock"
	"hallbooking/internal/timerange"
)

const testHall = "3f1c1a52-9a55-4d38-9d3b-8d4e2f0f6d11"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	clock := timerange.FixedClock{At: time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)}
	return NewManager(store, lock.NewLocal(time.Second), clock, quietLogger()), store
}

func date(t *testing.T, s string) timerange.Date {
	t.Helper()
	d, err := timerange.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func window(t *testing.T, from, to string) timerange.Window {
	t.Helper()
	w, err := timerange.ParseWindow(from, to)
	if err != nil {
		t.Fatalf("parse window: %v", err)
	}
	return w
}

func draft(t *testing.T, requester string, dates []string, from, to string) Draft {
	t.Helper()
	ds := make([]timerange.Date, 0, len(dates))
	for _, d := range dates {
		ds = append(ds, date(t, d))
	}
	return Draft{
		HallID:        testHall,
		RequesterID:   requester,
		RequesterName: "Requester " + requester,
		Purpose:       "department seminar",
		Seats:         40,
		Dates:         ds,
		Window:        window(t, from, to),
	}
}

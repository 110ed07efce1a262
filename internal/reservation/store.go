package reservation

import (
	"context"

	"hallbooking/internal/timerange"
)

type Reader interface {
	Get(ctx context.Context, id string) (*Reservation, error)
	// ListBlocking returns pending and approved reservations of the hall. Stores
	// may drop rows that share none of dates; callers must not rely on it.
	ListBlocking(ctx context.Context, hallID string, dates []timerange.Date) ([]Reservation, error)
	List(ctx context.Context, f Filter) ([]Reservation, error)
	CountByHall(ctx context.Context, hallID string) (int, error)
	History(ctx context.Context, reservationID string) ([]HistoryEntry, error)
}

type Writer interface {
	Insert(ctx context.Context, r *Reservation) error
	Update(ctx context.Context, r *Reservation) error
	Delete(ctx context.Context, id string) error
	AppendHistory(ctx context.Context, h HistoryEntry) error
}

// Tx is a store view whose writes commit together or not at all.
type Tx interface {
	Reader
	Writer
}

type Store interface {
	Reader
	// InTx runs fn in a transaction scoped to hallID. If fn returns an error
	// none of its writes are visible.
	InTx(ctx context.Context, hallID string, fn func(tx Tx) error) error
}

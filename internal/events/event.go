package events

import (
	"context"
	"time"
)

type Type string

const (
	TypeCreated         Type = "reservation.created"
	TypeApproved        Type = "reservation.approved"
	TypeRejected        Type = "reservation.rejected"
	TypeCancelled       Type = "reservation.cancelled"
	TypeCancelRequested Type = "reservation.cancel_requested"
	TypeCancelRejected  Type = "reservation.cancel_rejected"
	TypeWithdrawn       Type = "reservation.withdrawn"
)

// Event is a committed reservation lifecycle change handed to the notification
// collaborator.
type Event struct {
	Type          Type      `json:"type"`
	ReservationID string    `json:"reservationId"`
	HallID        string    `json:"hallId"`
	ActorID       string    `json:"actorId"`
	Timestamp     time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi fans an event out to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

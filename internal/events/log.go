package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

type LogPublisher struct {
	Log *logrus.Logger
}

func (p LogPublisher) Publish(_ context.Context, e Event) error {
	p.Log.WithFields(logrus.Fields{
		"event":         e.Type,
		"reservationId": e.ReservationID,
		"hallId":        e.HallID,
		"actor":         e.ActorID,
	}).Info("reservation event")
	return nil
}

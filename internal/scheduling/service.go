package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"hallbooking/internal/auth"
	"hallbooking/internal/events"
	"hallbooking/internal/hall"
	"hallbooking/internal/lock"
	"hallbooking/internal/reservation"
	"hallbooking/internal/timerange"
)

// Dispatcher receives events after the transition that produced them has
// committed. Implementations must not block.
type Dispatcher interface {
	Dispatch(e events.Event)
}

type Options struct {
	// HorizonDays bounds how far ahead a reservation date may lie.
	HorizonDays int
	// Location decides what "today" is for the horizon and past-date checks.
	Location *time.Location
	// MaxAttempts is the total number of tries for a write that hits contention.
	MaxAttempts int
	Backoff     time.Duration
}

func (o Options) withDefaults() Options {
	if o.HorizonDays <= 0 {
		o.HorizonDays = 30
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 50 * time.Millisecond
	}
	return o
}

// Service is the entry point for booking operations. It applies hall policy
// (existence, capacity, horizon) and roles, then hands state changes to the
// reservation Manager.
type Service struct {
	halls   hall.Repository
	store   reservation.Store
	manager *reservation.Manager
	locker  lock.Locker
	clock   timerange.Clock
	events  Dispatcher
	log     *logrus.Logger
	opts    Options
}

func NewService(halls hall.Repository, store reservation.Store, locker lock.Locker, clock timerange.Clock, dispatcher Dispatcher, log *logrus.Logger, opts Options) *Service {
	return &Service{
		halls:   halls,
		store:   store,
		manager: reservation.NewManager(store, locker, clock, log),
		locker:  locker,
		clock:   clock,
		events:  dispatcher,
		log:     log,
		opts:    opts.withDefaults(),
	}
}

// SubmitRequest is a new booking. Requester identity comes from the caller.
type SubmitRequest struct {
	HallID  string
	Purpose string
	Seats   int
	Dates   []timerange.Date
	Window  timerange.Window
	Contact string
}

func (s *Service) Submit(ctx context.Context, actor auth.Identity, req SubmitRequest) (*reservation.Reservation, error) {
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		return nil, reservation.ValidationError{Code: "PURPOSE_REQUIRED", Message: "purpose is required"}
	}
	if req.Seats <= 0 {
		return nil, reservation.ValidationError{Code: "SEATS_INVALID", Message: "seats must be positive"}
	}

	h, err := s.admitHall(ctx, req.HallID, req.Seats)
	if err != nil {
		return nil, err
	}

	dates := timerange.NormalizeDates(req.Dates)
	if err := s.checkHorizon(dates); err != nil {
		return nil, err
	}

	contact := strings.TrimSpace(req.Contact)
	if contact == "" {
		contact = actor.Contact
	}
	draft := reservation.Draft{
		HallID:           h.ID,
		RequesterID:      actor.ID,
		RequesterName:    actor.Name,
		RequesterContact: contact,
		Purpose:          purpose,
		Seats:            req.Seats,
		Dates:            dates,
		Window:           req.Window,
		// The hall may have been deleted or closed while we waited for its lock.
		Admit: func(ctx context.Context) error {
			_, err := s.admitHall(ctx, h.ID, req.Seats)
			return err
		},
	}

	var out *reservation.Reservation
	err = s.retry(ctx, h.ID, func() error {
		var err error
		out, err = s.manager.Submit(ctx, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(events.TypeCreated, out, actor.ID)
	return out, nil
}

func (s *Service) Approve(ctx context.Context, actor auth.Identity, id string) (*reservation.Reservation, error) {
	if err := requireAdmin(actor, "approve reservations"); err != nil {
		return nil, err
	}
	return s.write(ctx, id, actor, events.TypeApproved, func() (*reservation.Reservation, error) {
		return s.manager.Approve(ctx, id, actor.ID)
	})
}

func (s *Service) Reject(ctx context.Context, actor auth.Identity, id, reason string) (*reservation.Reservation, error) {
	if err := requireAdmin(actor, "reject reservations"); err != nil {
		return nil, err
	}
	return s.write(ctx, id, actor, events.TypeRejected, func() (*reservation.Reservation, error) {
		return s.manager.Reject(ctx, id, actor.ID, reason)
	})
}

func (s *Service) Cancel(ctx context.Context, actor auth.Identity, id, reason string) (*reservation.Reservation, error) {
	if err := requireAdmin(actor, "cancel reservations"); err != nil {
		return nil, err
	}
	return s.write(ctx, id, actor, events.TypeCancelled, func() (*reservation.Reservation, error) {
		return s.manager.Cancel(ctx, id, actor.ID, reason)
	})
}

func (s *Service) RequestCancellation(ctx context.Context, actor auth.Identity, id, reason string) (*reservation.Reservation, error) {
	return s.write(ctx, id, actor, events.TypeCancelRequested, func() (*reservation.Reservation, error) {
		return s.manager.RequestCancellation(ctx, id, actor.ID, reason)
	})
}

func (s *Service) ResolveCancellation(ctx context.Context, actor auth.Identity, id string, approve bool) (*reservation.Reservation, error) {
	if err := requireAdmin(actor, "resolve cancellation requests"); err != nil {
		return nil, err
	}
	typ := events.TypeCancelRejected
	if approve {
		typ = events.TypeCancelled
	}
	return s.write(ctx, id, actor, typ, func() (*reservation.Reservation, error) {
		return s.manager.ResolveCancellation(ctx, id, actor.ID, approve)
	})
}

func (s *Service) Withdraw(ctx context.Context, actor auth.Identity, id string) (*reservation.Reservation, error) {
	return s.write(ctx, id, actor, events.TypeWithdrawn, func() (*reservation.Reservation, error) {
		return s.manager.Withdraw(ctx, id, actor.ID)
	})
}

// write runs a Manager transition with contention retry and emits typ once it
// has committed.
func (s *Service) write(ctx context.Context, id string, actor auth.Identity, typ events.Type, fn func() (*reservation.Reservation, error)) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := s.retry(ctx, id, func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(typ, out, actor.ID)
	return out, nil
}

// retry re-runs fn while it fails with ContentionError, up to MaxAttempts,
// backing off linearly. Every other error is returned immediately.
func (s *Service) retry(ctx context.Context, key string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		var contention reservation.ContentionError
		if err == nil || !errors.As(err, &contention) || attempt >= s.opts.MaxAttempts {
			return err
		}

		s.log.WithFields(logrus.Fields{"key": key, "attempt": attempt}).Warn("hall busy, retrying")

		t := time.NewTimer(s.opts.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

func (s *Service) emit(typ events.Type, r *reservation.Reservation, actorID string) {
	if s.events == nil {
		return
	}
	s.events.Dispatch(events.Event{
		Type:          typ,
		ReservationID: r.ID,
		HallID:        r.HallID,
		ActorID:       actorID,
		Timestamp:     s.clock.Now().UTC(),
	})
}

// admitHall checks that the hall exists, is active and can seat seats.
func (s *Service) admitHall(ctx context.Context, hallID string, seats int) (*hall.Hall, error) {
	h, err := s.halls.Get(ctx, hallID)
	if err != nil {
		if errors.Is(err, hall.ErrNotFound) {
			return nil, reservation.ValidationError{Code: "HALL_NOT_FOUND", Message: "hall " + hallID + " does not exist"}
		}
		return nil, err
	}
	if !h.Active {
		return nil, reservation.ValidationError{Code: "HALL_INACTIVE", Message: "hall " + h.Name + " is not accepting reservations"}
	}
	if seats > h.Capacity {
		return nil, reservation.ValidationError{Code: "OVER_CAPACITY", Message: "hall " + h.Name + " seats at most " + itoa(h.Capacity)}
	}
	return h, nil
}

// checkHorizon requires every date to fall in [today, today+HorizonDays] in the
// configured location.
func (s *Service) checkHorizon(dates []timerange.Date) error {
	today := timerange.DateOf(s.clock.Now().In(s.opts.Location))
	last := today.AddDays(s.opts.HorizonDays)
	for _, d := range dates {
		if d.Before(today) {
			return reservation.ValidationError{Code: "DATE_IN_PAST", Message: "date " + d.String() + " is in the past"}
		}
		if d.After(last) {
			return reservation.ValidationError{Code: "BEYOND_HORIZON", Message: "date " + d.String() + " is more than " + itoa(s.opts.HorizonDays) + " days ahead"}
		}
	}
	return nil
}

func requireAdmin(actor auth.Identity, what string) error {
	if !actor.IsAdmin() {
		return reservation.ForbiddenError{Message: "only administrators can " + what}
	}
	return nil
}

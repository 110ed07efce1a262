package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hallbooking/internal/events"
	"hallbooking/internal/lock"
	"hallbooking/internal/timerange"
)

// Manager owns reservation status. Every write runs under the hall lock inside
// a store transaction, so a conflict check and the write that depends on it
// can't interleave with another writer for the same hall.
type Manager struct {
	store  Store
	locker lock.Locker
	clock  timerange.Clock
	log    *logrus.Logger
}

func NewManager(store Store, locker lock.Locker, clock timerange.Clock, log *logrus.Logger) *Manager {
	return &Manager{store: store, locker: locker, clock: clock, log: log}
}

// Draft is the requester-supplied part of a new reservation.
type Draft struct {
	HallID           string
	RequesterID      string
	RequesterName    string
	RequesterContact string
	Purpose          string
	Seats            int
	Dates            []timerange.Date
	Window           timerange.Window

	// Admit, if set, runs under the hall lock before the conflict check. A
	// non-nil error aborts the submission without writing.
	Admit func(ctx context.Context) error
}

func (m *Manager) Submit(ctx context.Context, d Draft) (*Reservation, error) {
	dates := timerange.NormalizeDates(d.Dates)
	if err := validateSlot(dates, d.Window); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	r := Reservation{
		ID:               uuid.NewString(),
		HallID:           d.HallID,
		RequesterID:      d.RequesterID,
		RequesterName:    d.RequesterName,
		RequesterContact: d.RequesterContact,
		Purpose:          d.Purpose,
		Seats:            d.Seats,
		Dates:            dates,
		Window:           d.Window,
		Status:           StatusPending,
		Review:           ReviewNone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := m.withHall(ctx, r.HallID, func(tx Tx) error {
		if d.Admit != nil {
			if err := d.Admit(ctx); err != nil {
				return err
			}
		}
		conflicts, err := NewChecker(tx).FindConflicts(ctx, r.HallID, r.Dates, r.Window, "")
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return ConflictError{HallID: r.HallID, Conflicts: conflicts}
		}
		if err := tx.Insert(ctx, &r); err != nil {
			return err
		}
		return record(ctx, tx, &r, events.TypeCreated, r.RequesterID, now, map[string]any{
			"dates":  r.Dates,
			"window": r.Window,
		})
	})
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"reservationId": r.ID, "hallId": r.HallID}).Info("reservation submitted")
	return &r, nil
}

func (m *Manager) Approve(ctx context.Context, id, adminID string) (*Reservation, error) {
	return m.transition(ctx, id, func(tx Tx, r *Reservation, now time.Time) (events.Type, map[string]any, error) {
		if r.Status != StatusPending {
			return "", nil, InvalidStateError{ID: r.ID, Current: r.state(), Attempted: string(StatusApproved)}
		}
		// The hall may have gained reservations since submission.
		conflicts, err := NewChecker(tx).FindConflicts(ctx, r.HallID, r.Dates, r.Window, r.ID)
		if err != nil {
			return "", nil, err
		}
		if len(conflicts) > 0 {
			return "", nil, ConflictError{HallID: r.HallID, Conflicts: conflicts}
		}
		r.Status = StatusApproved
		r.DecidedBy = adminID
		return events.TypeApproved, nil, nil
	}, adminID)
}

// Reject settles a pending reservation. The state check comes before the
// reason check, so rejecting a settled reservation is always InvalidStateError.
func (m *Manager) Reject(ctx context.Context, id, adminID, reason string) (*Reservation, error) {
	reason = strings.TrimSpace(reason)
	return m.transition(ctx, id, func(tx Tx, r *Reservation, now time.Time) (events.Type, map[string]any, error) {
		if r.Status != StatusPending {
			return "", nil, InvalidStateError{ID: r.ID, Current: r.state(), Attempted: string(StatusRejected)}
		}
		if reason == "" {
			return "", nil, reasonRequired("rejection")
		}
		r.Status = StatusRejected
		r.DecidedBy = adminID
		r.DecisionReason = reason
		return events.TypeRejected, map[string]any{"reason": reason}, nil
	}, adminID)
}

// Cancel is an administrator cancelling an approved reservation outright.
func (m *Manager) Cancel(ctx context.Context, id, adminID, reason string) (*Reservation, error) {
	reason = strings.TrimSpace(reason)
	return m.transition(ctx, id, func(tx Tx, r *Reservation, now time.Time) (events.Type, map[string]any, error) {
		if !CanTransition(r.Status, StatusCancelled) {
			return "", nil, InvalidStateError{ID: r.ID, Current: r.state(), Attempted: string(StatusCancelled)}
		}
		if reason == "" {
			return "", nil, reasonRequired("cancellation")
		}
		r.Status = StatusCancelled
		r.Review = ReviewNone
		r.ReviewReason = ""
		r.DecidedBy = adminID
		r.DecisionReason = reason
		return events.TypeCancelled, map[string]any{"reason": reason}, nil
	}, adminID)
}

func (m *Manager) RequestCancellation(ctx context.Context, id, requesterID, reason string) (*Reservation, error) {
	reason = strings.TrimSpace(reason)
	return m.transition(ctx, id, func(tx Tx, r *Reservation, now time.Time) (events.Type, map[string]any, error) {
		if r.Status != StatusApproved || r.Review == ReviewCancelRequested {
			return "", nil, InvalidStateError{ID: r.ID, Current: r.state(), Attempted: string(ReviewCancelRequested)}
		}
		if r.RequesterID != requesterID {
			return "", nil, ForbiddenError{Message: "only the requester can ask to cancel this reservation"}
		}
		if reason == "" {
			return "", nil, reasonRequired("cancellation")
		}
		r.Review = ReviewCancelRequested
		r.ReviewReason = reason
		return events.TypeCancelRequested, map[string]any{"reason": reason}, nil
	}, requesterID)
}

// ResolveCancellation settles a pending cancellation request. Approving it
// cancels the reservation; declining leaves it approved with review
// cancel-rejected, from which the requester may ask again.
func (m *Manager) ResolveCancellation(ctx context.Context, id, adminID string, approve bool) (*Reservation, error) {
	return m.transition(ctx, id, func(tx Tx, r *Reservation, now time.Time) (events.Type, map[string]any, error) {
		if r.Status != StatusApproved || r.Review != ReviewCancelRequested {
			attempted := string(ReviewCancelRejected)
			if approve {
				attempted = string(StatusCancelled)
			}
			return "", nil, InvalidStateError{ID: r.ID, Current: r.state(), Attempted: attempted}
		}
		data := map[string]any{"requestReason": r.ReviewReason}
		r.ReviewReason = ""
		r.DecidedBy = adminID
		if approve {
			r.Status = StatusCancelled
			r.Review = ReviewNone
			return events.TypeCancelled, data, nil
		}
		r.Review = ReviewCancelRejected
		return events.TypeCancelRejected, data, nil
	}, adminID)
}

// Withdraw removes a pending reservation on its requester's behalf.
func (m *Manager) Withdraw(ctx context.Context, id, requesterID string) (*Reservation, error) {
	cur, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var out *Reservation
	err = m.withHall(ctx, cur.HallID, func(tx Tx) error {
		r, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusPending {
			return InvalidStateError{ID: r.ID, Current: r.state(), Attempted: "withdrawn"}
		}
		if r.RequesterID != requesterID {
			return ForbiddenError{Message: "only the requester can withdraw this reservation"}
		}
		if err := tx.Delete(ctx, r.ID); err != nil {
			return err
		}
		out = r
		return record(ctx, tx, r, events.TypeWithdrawn, requesterID, m.clock.Now(), nil)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type mutation func(tx Tx, r *Reservation, now time.Time) (events.Type, map[string]any, error)

// transition re-reads the reservation under the hall lock, applies fn to a copy
// and persists it together with a history row. fn must not write.
func (m *Manager) transition(ctx context.Context, id string, fn mutation, actor string) (*Reservation, error) {
	cur, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var out *Reservation
	err = m.withHall(ctx, cur.HallID, func(tx Tx) error {
		r, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		now := m.clock.Now()
		typ, data, err := fn(tx, r, now)
		if err != nil {
			return err
		}
		r.UpdatedAt = now
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return record(ctx, tx, r, typ, actor, now, data)
	})
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"reservationId": out.ID,
		"hallId":        out.HallID,
		"status":        out.Status,
		"review":        out.Review,
		"actor":         actor,
	}).Info("reservation transitioned")
	return out, nil
}

func (m *Manager) withHall(ctx context.Context, hallID string, fn func(tx Tx) error) error {
	unlock, err := m.locker.Lock(ctx, hallID)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return ContentionError{Key: hallID, Err: err}
		}
		return err
	}
	defer unlock()

	return m.store.InTx(ctx, hallID, fn)
}

func record(ctx context.Context, tx Tx, r *Reservation, typ events.Type, actor string, at time.Time, data map[string]any) error {
	return tx.AppendHistory(ctx, HistoryEntry{
		ID:            uuid.NewString(),
		ReservationID: r.ID,
		HallID:        r.HallID,
		Type:          string(typ),
		Actor:         actor,
		OccurredAt:    at,
		Data:          data,
	})
}

func reasonRequired(kind string) ValidationError {
	return ValidationError{Code: "REASON_REQUIRED", Message: "a " + kind + " reason is required"}
}

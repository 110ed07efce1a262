package scheduling

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"

	"hallbooking/internal/auth"
	"hallbooking/internal/hall"
	"hallbooking/internal/reservation"
	"hallbooking/internal/timerange"
)

// Availability is advisory. Submit and Approve re-check under the hall lock.
type Availability struct {
	Available      bool     `json:"available"`
	ConflictingIDs []string `json:"conflictingIds"`
}

func (s *Service) CheckAvailability(ctx context.Context, hallID string, dates []timerange.Date, w timerange.Window) (*Availability, error) {
	if _, err := s.getHall(ctx, hallID); err != nil {
		return nil, err
	}
	conflicts, err := reservation.NewChecker(s.store).FindConflicts(ctx, hallID, timerange.NormalizeDates(dates), w, "")
	if err != nil {
		return nil, err
	}
	out := &Availability{Available: len(conflicts) == 0, ConflictingIDs: []string{}}
	for _, c := range conflicts {
		out.ConflictingIDs = append(out.ConflictingIDs, c.ID)
	}
	return out, nil
}

// Get returns a reservation. Non-admins only see their own.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id string) (*reservation.Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && r.RequesterID != actor.ID {
		return nil, reservation.ForbiddenError{Message: "not your reservation"}
	}
	return r, nil
}

// List applies f. Non-admins are always scoped to their own reservations.
func (s *Service) List(ctx context.Context, actor auth.Identity, f reservation.Filter) ([]reservation.Reservation, error) {
	if !actor.IsAdmin() {
		f.RequesterID = actor.ID
	}
	items, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []reservation.Reservation{}
	}
	return items, nil
}

func (s *Service) History(ctx context.Context, actor auth.Identity, id string) ([]reservation.HistoryEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	items, err := s.store.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []reservation.HistoryEntry{}
	}
	return items, nil
}

// Usage is the approved booked time of a hall over an inclusive date range.
type Usage struct {
	HallID       string          `json:"hallId"`
	From         timerange.Date  `json:"from"`
	To           timerange.Date  `json:"to"`
	Reservations int             `json:"reservations"`
	BookedDays   int             `json:"bookedDays"`
	Hours        decimal.Decimal `json:"hours"`
}

func (s *Service) HallUsage(ctx context.Context, actor auth.Identity, hallID string, from, to timerange.Date) (*Usage, error) {
	if err := requireAdmin(actor, "view hall usage"); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, reservation.ValidationError{Code: "RANGE_INVALID", Message: "range end is before its start"}
	}
	if _, err := s.getHall(ctx, hallID); err != nil {
		return nil, err
	}

	approved, err := s.store.List(ctx, reservation.Filter{HallID: hallID, Status: reservation.StatusApproved})
	if err != nil {
		return nil, err
	}

	u := &Usage{HallID: hallID, From: from, To: to, Hours: decimal.Zero}
	for _, r := range approved {
		var days int
		for _, d := range r.Dates {
			if !d.Before(from) && !d.After(to) {
				days++
			}
		}
		if days == 0 {
			continue
		}
		u.Reservations++
		u.BookedDays += days
		u.Hours = u.Hours.Add(r.Window.Hours().Mul(decimal.NewFromInt(int64(days))))
	}
	return u, nil
}

func (s *Service) getHall(ctx context.Context, id string) (*hall.Hall, error) {
	h, err := s.halls.Get(ctx, id)
	if err != nil {
		if errors.Is(err, hall.ErrNotFound) {
			return nil, reservation.NotFoundError{Kind: "hall", ID: id}
		}
		return nil, err
	}
	return h, nil
}

func itoa(n int) string { return strconv.Itoa(n) }

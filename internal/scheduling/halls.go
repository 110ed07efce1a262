package scheduling

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hallbooking/internal/auth"
	"hallbooking/internal/hall"
	"hallbooking/internal/lock"
	"hallbooking/internal/reservation"
)

type HallInput struct {
	Name       string
	Capacity   int
	Facilities []string
	Active     *bool
}

func (in HallInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return reservation.ValidationError{Code: "NAME_REQUIRED", Message: "hall name is required"}
	}
	if in.Capacity <= 0 {
		return reservation.ValidationError{Code: "CAPACITY_INVALID", Message: "capacity must be positive"}
	}
	return nil
}

func (s *Service) ListHalls(ctx context.Context, activeOnly bool) ([]hall.Hall, error) {
	items, err := s.halls.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []hall.Hall{}
	}
	return items, nil
}

func (s *Service) GetHall(ctx context.Context, id string) (*hall.Hall, error) {
	return s.getHall(ctx, id)
}

func (s *Service) CreateHall(ctx context.Context, actor auth.Identity, in HallInput) (*hall.Hall, error) {
	if err := requireAdmin(actor, "manage halls"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	h := &hall.Hall{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Capacity:   in.Capacity,
		Facilities: hall.NormalizeFacilities(in.Facilities),
		Active:     in.Active == nil || *in.Active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.halls.Create(ctx, h); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"hallId": h.ID, "actor": actor.ID}).Info("hall created")
	return h, nil
}

// UpdateHall replaces the editable fields. Active is left unchanged when nil.
// Lowering capacity does not affect existing reservations.
func (s *Service) UpdateHall(ctx context.Context, actor auth.Identity, id string, in HallInput) (*hall.Hall, error) {
	if err := requireAdmin(actor, "manage halls"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	h, err := s.getHall(ctx, id)
	if err != nil {
		return nil, err
	}
	h.Name = strings.TrimSpace(in.Name)
	h.Capacity = in.Capacity
	h.Facilities = hall.NormalizeFacilities(in.Facilities)
	if in.Active != nil {
		h.Active = *in.Active
	}
	h.UpdatedAt = s.clock.Now()

	if err := s.halls.Update(ctx, h); err != nil {
		if errors.Is(err, hall.ErrNotFound) {
			return nil, reservation.NotFoundError{Kind: "hall", ID: id}
		}
		return nil, err
	}
	return h, nil
}

// DeleteHall removes a hall that no reservation references, in any status.
// It holds the hall lock so no submission can land between count and delete.
func (s *Service) DeleteHall(ctx context.Context, actor auth.Identity, id string) error {
	if err := requireAdmin(actor, "manage halls"); err != nil {
		return err
	}
	if _, err := s.getHall(ctx, id); err != nil {
		return err
	}

	return s.retry(ctx, id, func() error {
		unlock, err := s.locker.Lock(ctx, id)
		if err != nil {
			if errors.Is(err, lock.ErrTimeout) {
				return reservation.ContentionError{Key: id, Err: err}
			}
			return err
		}
		defer unlock()

		n, err := s.store.CountByHall(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return hall.InUseError{HallID: id, Reservations: n}
		}
		if err := s.halls.Delete(ctx, id); err != nil {
			if errors.Is(err, hall.ErrNotFound) {
				return reservation.NotFoundError{Kind: "hall", ID: id}
			}
			return err
		}
		s.log.WithFields(logrus.Fields{"hallId": id, "actor": actor.ID}).Info("hall deleted")
		return nil
	})
}

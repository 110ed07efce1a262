package hall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("hall not found")
	ErrDuplicateName = errors.New("hall name already in use")
)

// InUseError rejects deleting a hall that reservations still reference.
type InUseError struct {
	HallID       string
	Reservations int
}

func (e InUseError) Error() string {
	if e.Reservations > 0 {
		return fmt.Sprintf("hall %s is referenced by %d reservations", e.HallID, e.Reservations)
	}
	return fmt.Sprintf("hall %s is referenced by reservations", e.HallID)
}

type Hall struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Capacity   int       `json:"capacity"`
	Facilities []string  `json:"facilities"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Repository is the hall catalog. Delete does not check reservations; callers
// must do that under the hall lock.
type Repository interface {
	Get(ctx context.Context, id string) (*Hall, error)
	List(ctx context.Context, activeOnly bool) ([]Hall, error)
	Create(ctx context.Context, h *Hall) error
	Update(ctx context.Context, h *Hall) error
	Delete(ctx context.Context, id string) error
}

// NormalizeFacilities trims, drops empties and de-duplicates case-insensitively,
// keeping first-seen order.
func NormalizeFacilities(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		k := strings.ToLower(f)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

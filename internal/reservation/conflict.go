package reservation

import (
	"context"
	"fmt"

	"hallbooking/internal/timerange"
)

// Checker answers whether a candidate booking overlaps existing pending or
// approved reservations of the same hall. It never writes.
type Checker struct {
	reader Reader
}

func NewChecker(reader Reader) *Checker {
	return &Checker{reader: reader}
}

// FindConflicts returns every pending/approved reservation of hallID, other
// than excludeID, that shares at least one date with dates and whose window
// overlaps w. Hall activity is not considered.
func (c *Checker) FindConflicts(ctx context.Context, hallID string, dates []timerange.Date, w timerange.Window, excludeID string) ([]Reservation, error) {
	if err := validateSlot(dates, w); err != nil {
		return nil, err
	}

	existing, err := c.reader.ListBlocking(ctx, hallID, dates)
	if err != nil {
		return nil, fmt.Errorf("list reservations for hall %s: %w", hallID, err)
	}
	return overlapping(existing, dates, w, excludeID), nil
}

func overlapping(existing []Reservation, dates []timerange.Date, w timerange.Window, excludeID string) []Reservation {
	var out []Reservation
	for _, r := range existing {
		if r.ID == excludeID || !r.Status.Blocking() {
			continue
		}
		if len(timerange.Intersect(r.Dates, dates)) == 0 {
			continue
		}
		if r.Window.Overlaps(w) {
			out = append(out, r)
		}
	}
	return out
}

func validateSlot(dates []timerange.Date, w timerange.Window) error {
	if len(dates) == 0 {
		return ValidationError{Code: "DATES_REQUIRED", Message: "at least one date is required"}
	}
	if err := w.Validate(); err != nil {
		return ValidationError{Code: "WINDOW_INVALID", Message: err.Error()}
	}
	return nil
}

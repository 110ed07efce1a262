package timerange

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrEmptyWindow = errors.New("window end must be after start")

// TimeOfDay is a wall-clock time as minutes since midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM". "24:00" is accepted as the end of the day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if s == "24:00" {
		return minutesPerDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Window is the half-open interval [From, To) within a single day.
type Window struct {
	From TimeOfDay `json:"from"`
	To   TimeOfDay `json:"to"`
}

func ParseWindow(from, to string) (Window, error) {
	f, err := ParseTimeOfDay(from)
	if err != nil {
		return Window{}, err
	}
	t, err := ParseTimeOfDay(to)
	if err != nil {
		return Window{}, err
	}
	w := Window{From: f, To: t}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func (w Window) Validate() error {
	if w.From < 0 || w.To > minutesPerDay {
		return fmt.Errorf("window %s out of day bounds", w)
	}
	if w.To <= w.From {
		return ErrEmptyWindow
	}
	return nil
}

// Overlaps reports whether w and o share any instant. Windows that only touch
// (one ends exactly when the other starts) do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.From < o.To && o.From < w.To
}

func (w Window) Minutes() int {
	return int(w.To - w.From)
}

func (w Window) Hours() decimal.Decimal {
	return decimal.NewFromInt(int64(w.Minutes())).Div(decimal.NewFromInt(60)).Round(2)
}

func (w Window) String() string {
	return w.From.String() + "-" + w.To.String()
}

package reservation

import (
	"time"

	"hallbooking/internal/timerange"
)

type Reservation struct {
	ID               string           `json:"id"`
	HallID           string           `json:"hallId"`
	RequesterID      string           `json:"requesterId"`
	RequesterName    string           `json:"requesterName"`
	RequesterContact string           `json:"requesterContact,omitempty"`
	Purpose          string           `json:"purpose"`
	Seats            int              `json:"seats"`
	Dates            []timerange.Date `json:"dates"`
	Window           timerange.Window `json:"window"`
	Status           Status           `json:"status"`
	Review           Review           `json:"review"`
	ReviewReason     string           `json:"reviewReason,omitempty"`
	DecidedBy        string           `json:"decidedBy,omitempty"`
	DecisionReason   string           `json:"decisionReason,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// state renders status plus review for error messages, e.g. "approved/cancel-requested".
func (r *Reservation) state() string {
	if r.Review == "" || r.Review == ReviewNone {
		return string(r.Status)
	}
	return string(r.Status) + "/" + string(r.Review)
}

func (r Reservation) clone() Reservation {
	out := r
	out.Dates = append([]timerange.Date(nil), r.Dates...)
	return out
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	HallID      string
	RequesterID string
	Status      Status
	Date        *timerange.Date
}

func (f Filter) matches(r *Reservation) bool {
	if f.HallID != "" && r.HallID != f.HallID {
		return false
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Date != nil && len(timerange.Intersect(r.Dates, []timerange.Date{*f.Date})) == 0 {
		return false
	}
	return true
}

// HistoryEntry is one audit row written in the same transaction as a transition.
type HistoryEntry struct {
	ID            string         `json:"id"`
	ReservationID string         `json:"reservationId"`
	HallID        string         `json:"hallId"`
	Type          string         `json:"eventType"`
	Actor         string         `json:"actor"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Data          map[string]any `json:"data,omitempty"`
}

package reservation

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

// Blocking reports whether a reservation in this status holds its hall.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusApproved
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusApproved: true, StatusRejected: true},
	StatusApproved:  {StatusCancelled: true},
	StatusRejected:  {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// Review tracks the cancellation request attached to an approved reservation.
type Review string

const (
	ReviewNone            Review = "none"
	ReviewCancelRequested Review = "cancel-requested"
	ReviewCancelRejected  Review = "cancel-rejected"
)

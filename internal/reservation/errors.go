package reservation

import (
	"fmt"
	"strings"
)

// ValidationError is malformed or out-of-policy input. Never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ConflictError carries the reservations that overlap the candidate.
type ConflictError struct {
	HallID    string
	Conflicts []Reservation
}

func (e ConflictError) IDs() []string {
	out := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		out = append(out, c.ID)
	}
	return out
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("hall %s already booked by %s", e.HallID, strings.Join(e.IDs(), ", "))
}

// InvalidStateError means the caller acted on a stale view of the reservation.
type InvalidStateError struct {
	ID        string
	Current   string
	Attempted string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("reservation %s: cannot move from %s to %s", e.ID, e.Current, e.Attempted)
}

type ForbiddenError struct {
	Message string
}

func (e ForbiddenError) Error() string {
	return "forbidden: " + e.Message
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ContentionError means the hall lock or storage lock could not be taken in
// time. It is the only error worth retrying.
type ContentionError struct {
	Key string
	Err error
}

func (e ContentionError) Error() string {
	return fmt.Sprintf("hall %s is busy: %v", e.Key, e.Err)
}

func (e ContentionError) Unwrap() error {
	return e.Err
}

package lock

import (
	"context"
	"errors"
)

// ErrTimeout is returned when a lock could not be acquired before the
// configured timeout elapsed.
var ErrTimeout = errors.New("lock: acquire timed out")

// Locker provides mutual exclusion keyed by an arbitrary string (a hall id).
// The returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

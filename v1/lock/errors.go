package lock

import (
	"errors"
	"fmt"
)

// ErrAlreadyHeld is returned when Acquire is called on a handle that already
// holds its lease. Locks are not reentrant.
var ErrAlreadyHeld = errors.New("lease: lock already held")

// ErrResourceExists reports that the resource guarded by the lock already
// exists. For get-or-create callers this is an alternate success: read the
// resource instead of producing it.
var ErrResourceExists = errors.New("lease: guarded resource already exists")

// MaxAttemptsError is returned when every acquisition attempt in the
// configured retry budget was lost to another holder.
type MaxAttemptsError struct {
	Attempts int
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("lease: lock not acquired after %d attempts", e.Attempts)
}

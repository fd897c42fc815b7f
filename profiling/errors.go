package profiling

import (
	"errors"
	"fmt"
)

// ErrAlreadyPending is returned when a task is started while another task
// with the same key is still pending. The original pending record is left
// untouched.
var ErrAlreadyPending = errors.New("task already pending")

// ErrNoSuchPending is returned when a task is annotated or ended without a
// matching pending record. The completed log is left untouched.
var ErrNoSuchPending = errors.New("no such pending task")

func alreadyPendingError(key TaskKey) error {
	return fmt.Errorf("%w: %q (scope %q)", ErrAlreadyPending, key.Name, key.Scope)
}

func noSuchPendingError(key TaskKey) error {
	return fmt.Errorf("%w: %q (scope %q)", ErrNoSuchPending, key.Name, key.Scope)
}

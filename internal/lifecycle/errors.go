package lifecycle

import (
	"errors"
	"fmt"

	"github.com/careloop/intake-review-api/internal/models"
)

// ErrStaleVersion is returned when the optimistic status update lost a race
// with a concurrent writer. Callers may re-read and retry; the store was
// not modified.
var ErrStaleVersion = errors.New("request status changed concurrently")

// IllegalTransitionError rejects an edge absent from the transition table.
// This is a validation error: retrying the same event cannot succeed.
type IllegalTransitionError struct {
	From  models.RequestStatus
	Event Event
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: event %q is not allowed from status %q", e.Event, e.From)
}

// GuardError rejects a legal edge whose guard condition failed, such as a
// reviewer acting on a claim they do not hold
type GuardError struct {
	Reason string
}

func (e *GuardError) Error() string {
	return "transition guard failed: " + e.Reason
}

// IsIllegalTransition reports whether the error is an IllegalTransitionError
func IsIllegalTransition(err error) bool {
	var target *IllegalTransitionError
	return errors.As(err, &target)
}

// IsGuardFailure reports whether the error is a GuardError
func IsGuardFailure(err error) bool {
	var target *GuardError
	return errors.As(err, &target)
}

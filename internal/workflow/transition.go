// Package workflow holds the error types shared by the status lifecycles of
// validation projects, change requests, documents and risk assessments.
package workflow

import (
	"errors"
	"fmt"
)

// TransitionError reports an illegal status transition. It carries the status
// the entity held when the transition was attempted and the status that was
// requested, for inclusion in API responses and audit entries.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal %s transition from %q to %q", e.Entity, e.From, e.To)
}

// NewTransitionError builds a TransitionError for the given entity and statuses.
func NewTransitionError(entity, from, to string) error {
	return &TransitionError{Entity: entity, From: from, To: to}
}

// IsTransitionError reports whether err is a TransitionError.
func IsTransitionError(err error) bool {
	var tErr *TransitionError
	return errors.As(err, &tErr)
}

// ErrConflict signals a lost-update race: the entity's status changed between
// the guard read and the conditional write. Callers must re-read before
// retrying; the core never retries on their behalf.
var ErrConflict = errors.New("status changed concurrently")

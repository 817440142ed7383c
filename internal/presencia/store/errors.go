package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmployee indicates the employee code is already enrolled.
	ErrDuplicateEmployee = errors.New("employee code already enrolled")

	// ErrPendingExists indicates the employee already has an open
	// pending_authorization record.  The HTTP layer maps this to 409.
	ErrPendingExists = errors.New("pending authorization already exists for employee")

	// ErrAlreadyResolved indicates a resolution attempt with a different
	// outcome against a record that already reached a terminal status.
	ErrAlreadyResolved = errors.New("authorization already resolved with a different outcome")

	// ErrInvalidOutcome indicates a resolution outcome other than
	// approved or rejected.
	ErrInvalidOutcome = errors.New("resolution outcome must be approved or rejected")
)

// StatusError carries the status and message of a failed remote-store call.
// The terminal surfaces Message to the operator; Status drives the mapping
// into the decision engine's three-way outcome.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store: status %d: %s", e.Status, e.Message)
}


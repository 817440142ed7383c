package store

import (
	"context"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// IdentityStore holds the enrolled identities.
type IdentityStore interface {
	// ListIdentities returns every enrolled identity.
	ListIdentities(ctx context.Context) ([]types.Identity, error)

	// InsertIdentity registers a new identity.  Returns ErrDuplicateEmployee
	// if the employee code is already enrolled.
	InsertIdentity(ctx context.Context, id types.Identity) (types.Identity, error)
}

// EventStore persists access events and pending authorizations.
type EventStore interface {
	// ListAccessEvents returns every recorded event.
	ListAccessEvents(ctx context.Context) ([]types.AccessEvent, error)

	// ListPendingAuthorizations returns the events still awaiting a
	// supervisor resolution, oldest first.
	ListPendingAuthorizations(ctx context.Context) ([]types.AccessEvent, error)

	// QueryLastEvent returns the employee's most recent approved event
	// (ordered by timestamp descending, limit 1), or nil if there is none.
	// Pending and rejected events are excluded: presence is defined by the
	// last approved event alone.
	QueryLastEvent(ctx context.Context, employeeCode string) (*types.AccessEvent, error)

	// InsertAccessEvent records a new event.  Inserting a pending event for
	// an employee that already has an open pending authorization returns
	// ErrPendingExists.
	InsertAccessEvent(ctx context.Context, ev types.AccessEvent) (types.AccessEvent, error)

	// ResolveAuthorization moves a pending event into approved or rejected.
	// Resolving an already-resolved record with the same outcome is a no-op
	// that returns the stored record; a different outcome returns
	// ErrAlreadyResolved.  Unknown IDs return ErrNotFound.
	ResolveAuthorization(ctx context.Context, recordID string, outcome types.EventStatus) (types.AccessEvent, error)
}

// RecordStore is the full remote-store contract the terminal depends on.
type RecordStore interface {
	IdentityStore
	EventStore
}

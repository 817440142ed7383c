// Package memory provides an in-memory RecordStore used by tests and the
// dev hub.  It honors the same invariants as the sqlite store, including the
// one-open-pending-per-employee constraint.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

type Store struct {
	mu         sync.Mutex
	identities []types.Identity
	events     []types.AccessEvent

	inserts int // total InsertAccessEvent calls that wrote a row
}

func New() *Store {
	return &Store{}
}

func (s *Store) ListIdentities(_ context.Context) ([]types.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Identity, len(s.identities))
	copy(out, s.identities)
	return out, nil
}

func (s *Store) InsertIdentity(_ context.Context, id types.Identity) (types.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.TrimSpace(id.EmployeeCode)
	if code == "" {
		return types.Identity{}, store.ErrNotFound
	}
	for _, existing := range s.identities {
		if existing.EmployeeCode == code {
			return types.Identity{}, store.ErrDuplicateEmployee
		}
	}
	id.EmployeeCode = code
	s.identities = append(s.identities, id)
	return id, nil
}

func (s *Store) ListAccessEvents(_ context.Context) ([]types.AccessEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *Store) ListPendingAuthorizations(_ context.Context) ([]types.AccessEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.AccessEvent
	for _, ev := range s.events {
		if ev.Status == types.StatusPending {
			out = append(out, ev)
		}
	}
	// Oldest first: the supervisor drains the queue in arrival order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Timestamp.Before(out[j-1].Timestamp); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *Store) QueryLastEvent(_ context.Context, employeeCode string) (*types.AccessEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.LastApproved(s.events, employeeCode), nil
}

func (s *Store) InsertAccessEvent(_ context.Context, ev types.AccessEvent) (types.AccessEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Status == types.StatusPending {
		for _, existing := range s.events {
			if existing.EmployeeCode == ev.EmployeeCode && existing.Status == types.StatusPending {
				return types.AccessEvent{}, store.ErrPendingExists
			}
		}
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Timestamp = ev.Timestamp.UTC()

	s.events = append(s.events, ev)
	s.inserts++
	return ev, nil
}

func (s *Store) ResolveAuthorization(_ context.Context, recordID string, outcome types.EventStatus) (types.AccessEvent, error) {
	if !outcome.Terminal() {
		return types.AccessEvent{}, store.ErrInvalidOutcome
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID != recordID {
			continue
		}
		switch s.events[i].Status {
		case types.StatusPending:
			s.events[i].Status = outcome
			return s.events[i], nil
		case outcome:
			// Idempotent: same outcome twice succeeds without a second write.
			return s.events[i], nil
		default:
			return types.AccessEvent{}, store.ErrAlreadyResolved
		}
	}
	return types.AccessEvent{}, store.ErrNotFound
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *Store) Events() []types.AccessEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessEvent, len(s.events))
	copy(out, s.events)
	return out
}

// InsertCount returns how many events have actually been written.
// Test-only helper for verifying duplicate suppression performs no write.
func (s *Store) InsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

// Package cache holds the terminal's last-fetched snapshot of enrolled
// identities and access-event history.  The snapshot is replaced as a whole:
// no reader ever observes new identities next to stale events.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/matcher"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// ErrNotInitialized is returned by Snapshot before the first successful
// Initialize or Refresh.
var ErrNotInitialized = errors.New("state cache not initialized")

// Snapshot is one immutable view of the remote store plus the matcher built
// from it.  Treat an obtained snapshot as frozen: a concurrent Refresh swaps
// in a new one but never mutates this one.
type Snapshot struct {
	identities []types.Identity
	events     []types.AccessEvent
	pending    []types.AccessEvent
	matcher    *matcher.Matcher
	fetchedAt  time.Time
}

// Identities returns a defensive copy of the enrolled identities.
func (s *Snapshot) Identities() []types.Identity {
	out := make([]types.Identity, len(s.identities))
	copy(out, s.identities)
	return out
}

// Events returns a defensive copy of the access-event history.
func (s *Snapshot) Events() []types.AccessEvent {
	out := make([]types.AccessEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Pending returns a defensive copy of the unresolved authorizations.
func (s *Snapshot) Pending() []types.AccessEvent {
	out := make([]types.AccessEvent, len(s.pending))
	copy(out, s.pending)
	return out
}

// Matcher returns the matcher built from this snapshot's identities.
// May be nil when no identity carries a usable descriptor.
func (s *Snapshot) Matcher() *matcher.Matcher { return s.matcher }

// FetchedAt is when the snapshot was taken.
func (s *Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// IdentityByCode looks up one identity in the snapshot.
func (s *Snapshot) IdentityByCode(code string) (types.Identity, bool) {
	for _, id := range s.identities {
		if id.EmployeeCode == code {
			return id, true
		}
	}
	return types.Identity{}, false
}

// LastApproved returns the employee's most recent approved event in this
// snapshot, or nil.
func (s *Snapshot) LastApproved(code string) *types.AccessEvent {
	return types.LastApproved(s.events, code)
}

// Cache fetches and swaps snapshots.  All mutation goes through Initialize,
// Refresh and AddIdentity; readers obtain a snapshot once and keep using
// that value.
type Cache struct {
	store  store.RecordStore
	logger *log.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

func New(st store.RecordStore, logger *log.Logger) *Cache {
	return &Cache{store: st, logger: logger}
}

// Initialize loads the first snapshot.  Idempotent: a no-op once a snapshot
// is present.
func (c *Cache) Initialize(ctx context.Context) error {
	c.mu.RLock()
	ready := c.snap != nil
	c.mu.RUnlock()
	if ready {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches a fresh snapshot and swaps it in atomically.  On failure
// the previous snapshot (if any) stays in place.
func (c *Cache) Refresh(ctx context.Context) error {
	identities, err := c.store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("refresh identities: %w", err)
	}
	events, err := c.store.ListAccessEvents(ctx)
	if err != nil {
		return fmt.Errorf("refresh events: %w", err)
	}
	pending, err := c.store.ListPendingAuthorizations(ctx)
	if err != nil {
		return fmt.Errorf("refresh pending authorizations: %w", err)
	}

	snap := &Snapshot{
		identities: identities,
		events:     events,
		pending:    pending,
		matcher:    matcher.Build(identities),
		fetchedAt:  time.Now().UTC(),
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.logger.Printf("state cache refreshed: identities=%d events=%d pending=%d matcher=%d",
		len(identities), len(events), len(pending), snap.matcher.Size())
	return nil
}

// AddIdentity appends a newly enrolled identity to the current snapshot and
// rebuilds the matcher, without a full remote refetch.  This is the one
// optimistic fast path; everything else replaces the snapshot wholesale.
func (c *Cache) AddIdentity(id types.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return ErrNotInitialized
	}

	old := c.snap
	identities := make([]types.Identity, 0, len(old.identities)+1)
	identities = append(identities, old.identities...)
	identities = append(identities, id)

	c.snap = &Snapshot{
		identities: identities,
		events:     old.events,
		pending:    old.pending,
		matcher:    matcher.Build(identities),
		fetchedAt:  old.fetchedAt,
	}
	return nil
}

// Snapshot returns the current snapshot, or an error before initialization.
func (c *Cache) Snapshot() (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, ErrNotInitialized
	}
	return c.snap, nil
}

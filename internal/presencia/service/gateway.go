package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// SubmitResult reports how a submission ended.  Skipped means the safe path
// found the employee already in the requested state and wrote nothing; the
// returned Record is then the existing event that made the write redundant.
type SubmitResult struct {
	Skipped bool
	Record  types.AccessEvent
}

// EventGateway submits decided events to the remote store with
// duplicate-suppression semantics that tolerate racing writers.
type EventGateway struct {
	store  store.EventStore
	auth   *SupervisorAuthorizer
	logger *log.Logger
	now    func() time.Time
}

func NewEventGateway(st store.EventStore, auth *SupervisorAuthorizer, logger *log.Logger) *EventGateway {
	return &EventGateway{
		store:  st,
		auth:   auth,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit is the safe path: it reads the employee's last approved event
// first and skips the insert when its type already equals the requested
// one.  The extra round trip buys a narrower duplicate window under
// concurrent writers — narrower, not zero; strict at-most-once needs a
// uniqueness guarantee in the store itself.
func (g *EventGateway) Submit(
	ctx context.Context,
	employeeCode string,
	typ types.EventType,
	method types.AuthMethod,
	detail *types.EventDetail,
) (SubmitResult, error) {
	last, err := g.store.QueryLastEvent(ctx, employeeCode)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("query last event: %w", err)
	}
	if last != nil && last.Type == typ {
		g.logger.Printf("gateway: skip duplicate %s for employee=%s (existing event %s)",
			typ, employeeCode, last.ID)
		return SubmitResult{Skipped: true, Record: *last}, nil
	}

	rec, err := g.store.InsertAccessEvent(ctx, types.AccessEvent{
		EmployeeCode: employeeCode,
		Type:         typ,
		Timestamp:    g.now(),
		Method:       method,
		Status:       types.StatusApproved,
		Detail:       detail,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Record: rec}, nil
}

// SubmitEscalation is the direct-insert path used for authorization
// requests.  No read-before-write here: duplication is acceptable because
// supervisor resolution is idempotent by record id, and the store's
// one-open-pending-per-employee constraint bounds it anyway.
func (g *EventGateway) SubmitEscalation(
	ctx context.Context,
	employeeCode string,
	typ types.EventType,
	method types.AuthMethod,
	detail *types.EventDetail,
) (types.AccessEvent, error) {
	return g.store.InsertAccessEvent(ctx, types.AccessEvent{
		EmployeeCode: employeeCode,
		Type:         typ,
		Timestamp:    g.now(),
		Method:       method,
		Status:       types.StatusPending,
		Detail:       detail,
	})
}

// Resolve moves one pending authorization into approved or rejected.
// Privileged: the caller must present a valid supervisor capability.
// Safe to call twice with the same outcome.
func (g *EventGateway) Resolve(
	ctx context.Context,
	cap Capability,
	recordID string,
	outcome types.EventStatus,
) (types.AccessEvent, error) {
	if !g.auth.Allowed(cap) {
		return types.AccessEvent{}, ErrNotAuthorized
	}
	rec, err := g.store.ResolveAuthorization(ctx, recordID, outcome)
	if err != nil {
		return types.AccessEvent{}, err
	}
	g.logger.Printf("gateway: authorization %s resolved as %s", recordID, outcome)
	return rec, nil
}

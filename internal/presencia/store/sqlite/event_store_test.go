package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	sqlitestore "github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store/sqlite"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

func seedIdentity(t *testing.T, conn *sql.DB, code string) {
	t.Helper()
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO identities(employee_code, name, national_id, access_level, shift, descriptor, photo_ref, created_at_ms)
VALUES (?, 'Test Person', '12345678', 0, 'morning', x'00', '', 0);
`, code)
	if err != nil {
		t.Fatalf("seedIdentity: %v", err)
	}
}

func insertEvent(t *testing.T, es *sqlitestore.EventStore, ev types.AccessEvent) types.AccessEvent {
	t.Helper()
	out, err := es.InsertAccessEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("InsertAccessEvent: %v", err)
	}
	return out
}

// ── Insert + last-event query ────────────────────────────────────────────────

func TestEventStore_QueryLastEvent_ReturnsLatestApproved(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "1001")
	es := sqlitestore.NewEventStore(conn, w)

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventEntry, Timestamp: base,
		Method: types.MethodFacial, Status: types.StatusApproved,
	})
	insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventExit, Timestamp: base.Add(time.Hour),
		Method: types.MethodFacial, Status: types.StatusApproved,
	})
	// A later rejected event must not change the answer.
	insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventEntry, Timestamp: base.Add(2 * time.Hour),
		Method: types.MethodFacial, Status: types.StatusRejected,
	})

	last, err := es.QueryLastEvent(context.Background(), "1001")
	if err != nil {
		t.Fatalf("QueryLastEvent: %v", err)
	}
	if last == nil {
		t.Fatal("expected a last event")
	}
	if last.Type != types.EventExit {
		t.Errorf("expected last approved type=exit, got %q", last.Type)
	}
	if !last.Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("unexpected timestamp: %v", last.Timestamp)
	}
}

func TestEventStore_QueryLastEvent_NoEvents_Nil(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "1001")
	es := sqlitestore.NewEventStore(conn, w)

	last, err := es.QueryLastEvent(context.Background(), "1001")
	if err != nil {
		t.Fatalf("QueryLastEvent: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil for employee with no events, got %+v", last)
	}
}

func TestEventStore_InsertAccessEvent_DetailRoundTrips(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "1001")
	es := sqlitestore.NewEventStore(conn, w)

	insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventEntry,
		Timestamp: time.Date(2026, 2, 15, 23, 0, 0, 0, time.UTC),
		Method:    types.MethodFacial, Status: types.StatusPending,
		Detail: &types.EventDetail{
			Reason:         "out_of_shift",
			AssignedShift:  "morning",
			AttemptedShift: "night",
		},
	})

	pending, err := es.ListPendingAuthorizations(context.Background())
	if err != nil {
		t.Fatalf("ListPendingAuthorizations: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(pending))
	}
	d := pending[0].Detail
	if d == nil || d.AssignedShift != "morning" || d.AttemptedShift != "night" {
		t.Errorf("detail did not round-trip: %+v", d)
	}
}

// ── Pending uniqueness ───────────────────────────────────────────────────────

func TestEventStore_SecondOpenPending_Rejected(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "1001")
	es := sqlitestore.NewEventStore(conn, w)

	insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventEntry,
		Method: types.MethodFacial, Status: types.StatusPending,
	})

	_, err := es.InsertAccessEvent(context.Background(), types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventEntry,
		Method: types.MethodFacial, Status: types.StatusPending,
	})
	if !errors.Is(err, store.ErrPendingExists) {
		t.Fatalf("expected ErrPendingExists, got %v", err)
	}
}

func TestEventStore_PendingAfterResolution_Allowed(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "1001")
	es := sqlitestore.NewEventStore(conn, w)

	first := insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventEntry,
		Method: types.MethodFacial, Status: types.StatusPending,
	})
	if _, err := es.ResolveAuthorization(context.Background(), first.ID, types.StatusApproved); err != nil {
		t.Fatalf("ResolveAuthorization: %v", err)
	}

	// The slot is free again once the previous pending record is resolved.
	insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventExit,
		Method: types.MethodFacial, Status: types.StatusPending,
	})
}

// ── Resolution idempotence ───────────────────────────────────────────────────

func TestEventStore_ResolveTwiceSameOutcome_Idempotent(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "1001")
	es := sqlitestore.NewEventStore(conn, w)

	ev := insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventEntry,
		Method: types.MethodFacial, Status: types.StatusPending,
	})

	first, err := es.ResolveAuthorization(context.Background(), ev.ID, types.StatusApproved)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := es.ResolveAuthorization(context.Background(), ev.ID, types.StatusApproved)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if first.ID != second.ID || second.Status != types.StatusApproved {
		t.Errorf("expected same approved record, got %+v / %+v", first, second)
	}

	events, err := es.ListAccessEvents(context.Background())
	if err != nil {
		t.Fatalf("ListAccessEvents: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected exactly one terminal record, got %d", len(events))
	}
}

func TestEventStore_ResolveDifferentOutcome_Fails(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedIdentity(t, conn, "1001")
	es := sqlitestore.NewEventStore(conn, w)

	ev := insertEvent(t, es, types.AccessEvent{
		EmployeeCode: "1001", Type: types.EventEntry,
		Method: types.MethodFacial, Status: types.StatusPending,
	})

	if _, err := es.ResolveAuthorization(context.Background(), ev.ID, types.StatusApproved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, err := es.ResolveAuthorization(context.Background(), ev.ID, types.StatusRejected)
	if !errors.Is(err, store.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestEventStore_ResolveUnknownID_NotFound(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewEventStore(conn, w)

	_, err := es.ResolveAuthorization(context.Background(), "nope", types.StatusApproved)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

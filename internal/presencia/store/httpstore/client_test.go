package httpstore_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"testing"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/httpapi"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/service"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store/httpstore"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store/memory"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

const supervisorToken = "sup-secret"

// newTestClient runs the real API server over an in-memory store and points
// a client at it, so both ends of the wire contract are exercised together.
func newTestClient(t *testing.T) *httpstore.Client {
	t.Helper()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger: log.New(io.Discard, "", 0),
		Addr:   ":0",
		Store:  memory.New(),
		Auth:   service.NewSupervisorAuthorizer([]string{supervisorToken}),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return httpstore.New(ts.URL).WithSupervisorToken(supervisorToken)
}

func testDescriptor() types.Descriptor {
	desc := make(types.Descriptor, types.DescriptorLength)
	for i := range desc {
		desc[i] = float32(i) / float32(types.DescriptorLength)
	}
	return desc
}

func TestIdentityRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	in := types.Identity{
		EmployeeCode: "EMP-1",
		Name:         "Ada",
		NationalID:   "100",
		AccessLevel:  2,
		Shift:        "morning",
		Descriptor:   testDescriptor(),
	}
	stored, err := client.InsertIdentity(ctx, in)
	if err != nil {
		t.Fatalf("InsertIdentity: %v", err)
	}
	if stored.EmployeeCode != "EMP-1" {
		t.Errorf("stored code = %q", stored.EmployeeCode)
	}

	ids, err := client.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("ListIdentities: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("identity count = %d, want 1", len(ids))
	}
	got := ids[0]
	if got.Name != "Ada" || got.Shift != "morning" || got.AccessLevel != 2 {
		t.Errorf("identity = %+v", got)
	}
	if len(got.Descriptor) != types.DescriptorLength {
		t.Fatalf("descriptor length = %d", len(got.Descriptor))
	}
	for i := range got.Descriptor {
		if got.Descriptor[i] != in.Descriptor[i] {
			t.Fatalf("descriptor[%d] = %v, want %v", i, got.Descriptor[i], in.Descriptor[i])
		}
	}

	if _, err := client.InsertIdentity(ctx, in); !errors.Is(err, store.ErrDuplicateEmployee) {
		t.Fatalf("duplicate err = %v, want ErrDuplicateEmployee", err)
	}
}

func TestQueryLastEventMapping(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// No history: an answer, not an error.
	last, err := client.QueryLastEvent(ctx, "EMP-1")
	if err != nil {
		t.Fatalf("QueryLastEvent: %v", err)
	}
	if last != nil {
		t.Fatalf("last = %+v, want nil", last)
	}

	if _, err := client.InsertAccessEvent(ctx, types.AccessEvent{
		EmployeeCode: "EMP-1",
		Type:         types.EventEntry,
		Method:       types.MethodFacial,
		Status:       types.StatusApproved,
	}); err != nil {
		t.Fatalf("InsertAccessEvent: %v", err)
	}

	last, err = client.QueryLastEvent(ctx, "EMP-1")
	if err != nil {
		t.Fatalf("QueryLastEvent: %v", err)
	}
	if last == nil || last.Type != types.EventEntry {
		t.Fatalf("last = %+v, want the approved entry", last)
	}
}

func TestPendingConflictMapsToSentinel(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	pending := types.AccessEvent{
		EmployeeCode: "EMP-1",
		Type:         types.EventEntry,
		Method:       types.MethodFacial,
		Status:       types.StatusPending,
		Detail:       &types.EventDetail{Reason: "out_of_shift", AssignedShift: "night", AttemptedShift: "morning"},
	}
	first, err := client.InsertAccessEvent(ctx, pending)
	if err != nil {
		t.Fatalf("InsertAccessEvent: %v", err)
	}
	if first.Detail == nil || first.Detail.AssignedShift != "night" {
		t.Errorf("detail did not survive the wire: %+v", first.Detail)
	}

	if _, err := client.InsertAccessEvent(ctx, pending); !errors.Is(err, store.ErrPendingExists) {
		t.Fatalf("second pending err = %v, want ErrPendingExists", err)
	}
}

func TestResolveAuthorizationOverWire(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	rec, err := client.InsertAccessEvent(ctx, types.AccessEvent{
		EmployeeCode: "EMP-1",
		Type:         types.EventEntry,
		Method:       types.MethodFacial,
		Status:       types.StatusPending,
	})
	if err != nil {
		t.Fatalf("InsertAccessEvent: %v", err)
	}

	queue, err := client.ListPendingAuthorizations(ctx)
	if err != nil {
		t.Fatalf("ListPendingAuthorizations: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != rec.ID {
		t.Fatalf("queue = %+v", queue)
	}

	resolved, err := client.ResolveAuthorization(ctx, rec.ID, types.StatusRejected)
	if err != nil {
		t.Fatalf("ResolveAuthorization: %v", err)
	}
	if resolved.Status != types.StatusRejected {
		t.Errorf("status = %q, want rejected", resolved.Status)
	}

	// Same outcome again succeeds; a different one conflicts.
	if _, err := client.ResolveAuthorization(ctx, rec.ID, types.StatusRejected); err != nil {
		t.Fatalf("repeat resolve: %v", err)
	}
	if _, err := client.ResolveAuthorization(ctx, rec.ID, types.StatusApproved); !errors.Is(err, store.ErrAlreadyResolved) {
		t.Fatalf("conflicting resolve err = %v, want ErrAlreadyResolved", err)
	}
	if _, err := client.ResolveAuthorization(ctx, "no-such-id", types.StatusApproved); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestResolveWithoutTokenIsStatusError(t *testing.T) {
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger: log.New(io.Discard, "", 0),
		Addr:   ":0",
		Store:  memory.New(),
		Auth:   service.NewSupervisorAuthorizer([]string{supervisorToken}),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	client := httpstore.New(ts.URL) // no token

	_, err := client.ResolveAuthorization(context.Background(), "whatever", types.StatusApproved)
	var statusErr *store.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != 401 {
		t.Fatalf("err = %v, want a 401 StatusError", err)
	}
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/db"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

type EventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewEventStore(db *sql.DB, writer *dbpkg.Worker) *EventStore {
	return &EventStore{db: db, writer: writer}
}

const eventColumns = `id, employee_code, type, timestamp_ms, method, status, detail_json`

func (s *EventStore) ListAccessEvents(ctx context.Context) ([]types.AccessEvent, error) {
	return s.queryEvents(ctx, `
SELECT `+eventColumns+`
FROM access_events
ORDER BY timestamp_ms;
`)
}

func (s *EventStore) ListPendingAuthorizations(ctx context.Context) ([]types.AccessEvent, error) {
	return s.queryEvents(ctx, `
SELECT `+eventColumns+`
FROM access_events
WHERE status = 'pending_authorization'
ORDER BY timestamp_ms;
`)
}

func (s *EventStore) QueryLastEvent(ctx context.Context, employeeCode string) (*types.AccessEvent, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+eventColumns+`
FROM access_events
WHERE employee_code = ? AND status = 'approved'
ORDER BY timestamp_ms DESC
LIMIT 1;
`, employeeCode)

	ev, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("QueryLastEvent: %w", err)
	}
	return &ev, nil
}

func (s *EventStore) InsertAccessEvent(ctx context.Context, ev types.AccessEvent) (types.AccessEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Timestamp = ev.Timestamp.UTC()

	var detailJSON any
	if ev.Detail != nil {
		raw, err := json.Marshal(ev.Detail)
		if err != nil {
			return types.AccessEvent{}, fmt.Errorf("InsertAccessEvent marshal detail: %w", err)
		}
		detailJSON = string(raw)
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if ev.Status == types.StatusPending {
			// The partial unique index enforces this too; the pre-check lets
			// us return the sentinel instead of a driver constraint error.
			var one int
			err := tx.QueryRowContext(ctx, `
SELECT 1 FROM access_events
WHERE employee_code = ? AND status = 'pending_authorization';
`, ev.EmployeeCode).Scan(&one)
			if err == nil {
				return store.ErrPendingExists
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("InsertAccessEvent pending check: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(`+eventColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			ev.ID, ev.EmployeeCode, string(ev.Type), ev.Timestamp.UnixMilli(),
			string(ev.Method), string(ev.Status), detailJSON,
		); err != nil {
			return fmt.Errorf("InsertAccessEvent insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.AccessEvent{}, err
	}
	return ev, nil
}

func (s *EventStore) ResolveAuthorization(ctx context.Context, recordID string, outcome types.EventStatus) (types.AccessEvent, error) {
	if !outcome.Terminal() {
		return types.AccessEvent{}, store.ErrInvalidOutcome
	}

	var resolved types.AccessEvent
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
SELECT `+eventColumns+`
FROM access_events
WHERE id = ?;
`, recordID)

		ev, err := scanEvent(row.Scan)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("ResolveAuthorization load: %w", err)
		}

		switch ev.Status {
		case types.StatusPending:
			if _, err := tx.ExecContext(ctx,
				`UPDATE access_events SET status = ? WHERE id = ?;`,
				string(outcome), recordID,
			); err != nil {
				return fmt.Errorf("ResolveAuthorization update: %w", err)
			}
			ev.Status = outcome
		case outcome:
			// Same outcome twice: idempotent, no second write.
		default:
			return store.ErrAlreadyResolved
		}

		resolved = ev
		return nil
	})
	if err != nil {
		return types.AccessEvent{}, err
	}
	return resolved, nil
}

func (s *EventStore) queryEvents(ctx context.Context, query string, args ...any) ([]types.AccessEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queryEvents: %w", err)
	}
	defer rows.Close()

	var out []types.AccessEvent
	for rows.Next() {
		ev, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("queryEvents scan: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queryEvents rows: %w", err)
	}
	return out, nil
}

func scanEvent(scan func(dest ...any) error) (types.AccessEvent, error) {
	var (
		ev         types.AccessEvent
		tsMs       int64
		typ        string
		method     string
		status     string
		detailJSON sql.NullString
	)
	if err := scan(&ev.ID, &ev.EmployeeCode, &typ, &tsMs, &method, &status, &detailJSON); err != nil {
		return types.AccessEvent{}, err
	}
	ev.Type = types.EventType(typ)
	ev.Method = types.AuthMethod(method)
	ev.Status = types.EventStatus(status)
	ev.Timestamp = time.UnixMilli(tsMs).UTC()
	if detailJSON.Valid && detailJSON.String != "" {
		var detail types.EventDetail
		if err := json.Unmarshal([]byte(detailJSON.String), &detail); err != nil {
			return types.AccessEvent{}, fmt.Errorf("decode detail: %w", err)
		}
		ev.Detail = &detail
	}
	return ev, nil
}

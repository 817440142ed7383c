package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	dbpkg "github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/db"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

type IdentityStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewIdentityStore(db *sql.DB, writer *dbpkg.Worker) *IdentityStore {
	return &IdentityStore{db: db, writer: writer}
}

func (s *IdentityStore) ListIdentities(ctx context.Context) ([]types.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT employee_code, name, national_id, access_level, shift, descriptor, photo_ref
FROM identities
ORDER BY employee_code;
`)
	if err != nil {
		return nil, fmt.Errorf("ListIdentities query: %w", err)
	}
	defer rows.Close()

	var out []types.Identity
	for rows.Next() {
		var id types.Identity
		var descriptor []byte
		if err := rows.Scan(
			&id.EmployeeCode, &id.Name, &id.NationalID,
			&id.AccessLevel, &id.Shift, &descriptor, &id.PhotoRef,
		); err != nil {
			return nil, fmt.Errorf("ListIdentities scan: %w", err)
		}
		id.Descriptor = decodeDescriptor(descriptor)
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListIdentities rows: %w", err)
	}
	return out, nil
}

func (s *IdentityStore) InsertIdentity(ctx context.Context, id types.Identity) (types.Identity, error) {
	code := strings.TrimSpace(id.EmployeeCode)
	if code == "" {
		return types.Identity{}, store.ErrNotFound
	}
	id.EmployeeCode = code
	nowMs := time.Now().UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM identities WHERE employee_code = ?;`, code,
		).Scan(&exists)
		if err == nil {
			return store.ErrDuplicateEmployee
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("InsertIdentity existence check: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO identities(
  employee_code, name, national_id, access_level, shift, descriptor, photo_ref, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			code, id.Name, id.NationalID, id.AccessLevel, id.Shift,
			encodeDescriptor(id.Descriptor), id.PhotoRef, nowMs,
		); err != nil {
			return fmt.Errorf("InsertIdentity insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Identity{}, err
	}
	return id, nil
}

// Descriptors are stored as little-endian float32 blobs; length is enforced
// at the service layer, not here.

func encodeDescriptor(d types.Descriptor) []byte {
	out := make([]byte, 4*len(d))
	for i, v := range d {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func decodeDescriptor(raw []byte) types.Descriptor {
	if len(raw)%4 != 0 {
		return nil
	}
	out := make(types.Descriptor, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out
}

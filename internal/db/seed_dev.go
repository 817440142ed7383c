package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// Optional employee code for the starter identity.  Defaults to "0001".
	EmployeeCode string
}

// SeedDev inserts a minimal starter identity so a fresh dev hub has
// something to match and list.  The descriptor is a zero vector: it will
// never win a real match, which is the point — dev seeding must not make
// recognition silently succeed.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	code := opt.EmployeeCode
	if code == "" {
		code = "0001"
	}
	now := time.Now().UTC().UnixMilli()

	zero := make([]byte, 128*4)

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO identities(
  employee_code, name, national_id, access_level, shift, descriptor, photo_ref, created_at_ms
) VALUES (?, 'Dev Employee', '00000000', 0, 'morning', ?, '', ?);
`, code, zero, now); err != nil {
		return fmt.Errorf("seed identity %s: %w", code, err)
	}

	return nil
}

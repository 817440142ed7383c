// Package sqlite implements the record store on a local SQLite database.
// It backs the hub in `presencia serve` and the terminal's offline mode.
package sqlite

import (
	"database/sql"

	dbpkg "github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/db"
)

// Store bundles the per-entity stores into a single store.RecordStore.
type Store struct {
	*IdentityStore
	*EventStore
}

func New(db *sql.DB, writer *dbpkg.Worker) *Store {
	return &Store{
		IdentityStore: NewIdentityStore(db, writer),
		EventStore:    NewEventStore(db, writer),
	}
}

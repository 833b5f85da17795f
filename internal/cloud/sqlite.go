package cloud

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS records (
	kind          TEXT NOT NULL,
	id            TEXT NOT NULL,
	last_modified TEXT NOT NULL,
	sort_order    INTEGER NOT NULL,
	fields        TEXT NOT NULL,
	PRIMARY KEY (kind, id)
)`

// SQLite is a Backend stored in a single SQLite file.
type SQLite struct {
	*sqlBackend
	path string
}

var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Writers serialize on the file lock anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	backend, err := newSQLBackend(ctx, db, dialect{
		name:    types.BackendSQLite,
		schema:  sqliteSchema,
		timeArg: func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{sqlBackend: backend, path: path}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

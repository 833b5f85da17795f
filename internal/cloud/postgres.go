package cloud

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/mesh-intelligence/almanac/pkg/types"
)

const (
	postgresDriver = "pgx"
	// DefaultPostgresDSN is used when remote.dsn is empty.
	DefaultPostgresDSN = "postgres://localhost/almanac?sslmode=disable"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS records (
	kind          TEXT NOT NULL,
	id            TEXT NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL,
	sort_order    INTEGER NOT NULL,
	fields        JSONB NOT NULL,
	PRIMARY KEY (kind, id)
)`

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Postgres is a Backend stored in a Postgres table.
type Postgres struct {
	*sqlBackend
}

var _ Backend = (*Postgres)(nil)

// OpenPostgres connects with dsn (DefaultPostgresDSN when empty) and
// ensures the records table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = DefaultPostgresDSN
	}
	openMu.Lock()
	db, err := sqlOpen(postgresDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	backend, err := newSQLBackend(ctx, db, dialect{
		name:    types.BackendPostgres,
		schema:  postgresSchema,
		bindvar: dollarBindvar,
		timeArg: func(t time.Time) any { return t.UTC() },
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{sqlBackend: backend}, nil
}

// DB exposes the underlying handle for tests and maintenance tooling.
func (p *Postgres) DB() *sql.DB { return p.db }

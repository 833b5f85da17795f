package cloud

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// dialect holds what differs between the SQL backends.
type dialect struct {
	name   string
	schema string
	// bindvar renders the n-th (1-based) placeholder.
	bindvar func(n int) string
	// timeArg converts a timestamp to the driver's preferred argument.
	timeArg func(time.Time) any
}

// sqlBackend stores records in a single table keyed by (kind, id).
type sqlBackend struct {
	db      *sql.DB
	dialect dialect

	selectQuery string
	upsertQuery string
	deleteQuery string
}

func newSQLBackend(ctx context.Context, db *sql.DB, d dialect) (*sqlBackend, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, classify("ping "+d.name, types.ErrRemoteUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		return nil, fmt.Errorf("create %s schema: %w", d.name, err)
	}
	return &sqlBackend{
		db:      db,
		dialect: d,
		selectQuery: rebind(d,
			`SELECT id, last_modified, sort_order, fields FROM records WHERE kind = ? ORDER BY sort_order, id`),
		upsertQuery: rebind(d,
			`INSERT INTO records (kind, id, last_modified, sort_order, fields) VALUES (?, ?, ?, ?, ?) `+
				`ON CONFLICT (kind, id) DO UPDATE SET last_modified = excluded.last_modified, `+
				`sort_order = excluded.sort_order, fields = excluded.fields`),
		deleteQuery: rebind(d, `DELETE FROM records WHERE kind = ? AND id = ?`),
	}, nil
}

// rebind replaces each ? with the dialect's placeholder.
func rebind(d dialect, query string) string {
	if d.bindvar == nil {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.bindvar(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func dollarBindvar(n int) string { return "$" + strconv.Itoa(n) }

func (s *sqlBackend) Name() string { return s.dialect.name }

func (s *sqlBackend) Fetch(ctx context.Context, kind string) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.selectQuery, kind)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var (
			rec    types.Record
			raw    any
			when   timestampValue
			fields []byte
		)
		if err := rows.Scan(&rec.ID, &raw, &rec.SortOrder, &fields); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		if err := when.Scan(raw); err != nil {
			slog.Warn("skipping remote record", "backend", s.dialect.name, "kind", kind, "id", rec.ID, "error", err)
			continue
		}
		rec.Kind = kind
		rec.LastModified = when.Time
		rec.Fields = fields
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

func (s *sqlBackend) Put(ctx context.Context, rec types.Record) (types.RemoteRef, error) {
	if rec.Kind == "" || rec.ID == "" {
		return "", types.ErrInvalidID
	}
	fields := string(rec.Fields)
	if fields == "" {
		fields = "{}"
	}
	_, err := s.db.ExecContext(ctx, s.upsertQuery,
		rec.Kind, rec.ID, s.dialect.timeArg(rec.LastModified), rec.SortOrder, fields)
	if err != nil {
		return "", fmt.Errorf("upsert %s %s: %w", rec.Kind, rec.ID, err)
	}
	return MakeRef(rec.Kind, rec.ID), nil
}

func (s *sqlBackend) Remove(ctx context.Context, ref types.RemoteRef) error {
	kind, id, err := ParseRef(ref)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, kind, id); err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func (s *sqlBackend) Close() error { return s.db.Close() }

// timestampValue scans timestamps stored either natively or as RFC 3339 text.
type timestampValue struct {
	time.Time
}

func (t *timestampValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (t *timestampValue) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

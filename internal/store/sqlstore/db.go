package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/MrSnakeDoc/taust/internal/logger"
	"github.com/MrSnakeDoc/taust/internal/retry"
)

// Dialect selects the database/sql driver and its SQL flavor.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts the driver names understood by Open.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", s)
	}
}

// Options configures Open.
type Options struct {
	Dialect Dialect
	DSN     string // sqlite: file path or "file:" DSN; postgres: lib/pq connection string
	Retry   retry.Options
}

// sqliteDSN turns a plain path into a DSN with foreign keys and WAL enabled.
func sqliteDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return dsn, nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return "", fmt.Errorf("mkdir data dir: %w", err)
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", dsn), nil
}

// Open connects to the database, waiting for it with the retry options,
// and applies the schema.
func Open(ctx context.Context, opts Options, log logger.Logger) (*sql.DB, error) {
	dsn := opts.DSN
	addr := string(opts.Dialect)
	if opts.Dialect == DialectSQLite {
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
		addr = opts.DSN
	}

	db, err := sql.Open(string(opts.Dialect), dsn)
	if err != nil {
		return nil, err
	}
	if opts.Dialect == DialectSQLite {
		// One writer at a time; readers share the WAL.
		db.SetMaxOpenConns(1)
	}

	if err := retry.Connect(ctx, "database", addr, db.PingContext, opts.Retry, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db, opts.Dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func schema(d Dialect) []string {
	ts, seq := "DATETIME", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == DialectPostgres {
		ts, seq = "TIMESTAMPTZ", "BIGSERIAL PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			hostname TEXT UNIQUE,
			style TEXT NOT NULL DEFAULT '',
			locale TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS servers (
			id TEXT PRIMARY KEY,
			hostname TEXT NOT NULL UNIQUE,
			created_at ` + ts + ` NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS domains (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at ` + ts + ` NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS page_to_server (
			page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
			server_id TEXT NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			PRIMARY KEY(page_id, server_id)
		);`,
		`CREATE TABLE IF NOT EXISTS page_to_domain (
			page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
			domain_id TEXT NOT NULL REFERENCES domains(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			PRIMARY KEY(page_id, domain_id)
		);`,
		`CREATE TABLE IF NOT EXISTS announcements (
			seq ` + seq + `,
			id TEXT NOT NULL UNIQUE,
			page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			planned_at ` + ts + ` NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_announcements_page_planned ON announcements(page_id, planned_at DESC);`,
	}
}

// Migrate creates the schema if missing.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range schema(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}

// rebind rewrites "?" placeholders to "$n" for postgres.
func rebind(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports a unique constraint failure from either driver.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

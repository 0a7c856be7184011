package ledger

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Ledger is the backup store for sync runs.
type Ledger struct {
	db     *sql.DB
	active bool
	log    *slog.Logger
}

// Open creates or opens a SQLite database at the given path and applies
// the schema. Use ":memory:" for a non-persistent ledger.
//
// The connection pool is limited to a single connection: SQLite supports
// one writer, and an in-memory database exists per connection.
func Open(path string, log *slog.Logger) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to ledger database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &Ledger{db: db, active: true, log: log}, nil
}

// OpenInactive returns a ledger whose writes are logged no-ops that report
// success. Used when the ledger is configured off.
func OpenInactive(log *slog.Logger) *Ledger {
	return &Ledger{active: false, log: log}
}

// Active reports whether writes reach a real database.
func (l *Ledger) Active() bool {
	return l.active
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

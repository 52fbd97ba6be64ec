// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides group/member/invite/thread/todo/ledger persistence with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas ride in the DSN so every pooled connection gets them; a plain
	// db.Exec would configure only the one connection it happened to run on.
	// WAL for concurrent readers, foreign_keys for referential integrity,
	// busy_timeout so competing writers wait instead of failing SQLITE_BUSY.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS groups (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS members (
			id           TEXT PRIMARY KEY,
			group_id     TEXT NOT NULL REFERENCES groups(id),
			display_name TEXT NOT NULL,
			role         TEXT NOT NULL DEFAULT 'member',
			created_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_members_group ON members(group_id);

		CREATE TABLE IF NOT EXISTS invite_codes (
			id                TEXT PRIMARY KEY,
			group_id          TEXT NOT NULL REFERENCES groups(id),
			code              TEXT UNIQUE NOT NULL,
			role              TEXT,
			expires_at        TEXT,
			created_at        TEXT NOT NULL,
			used_at           TEXT,
			used_by_member_id TEXT REFERENCES members(id)
		);

		CREATE INDEX IF NOT EXISTS idx_invite_codes_code ON invite_codes(code);
		CREATE INDEX IF NOT EXISTS idx_invite_codes_group ON invite_codes(group_id);

		CREATE TABLE IF NOT EXISTS chat_threads (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id   TEXT NOT NULL REFERENCES groups(id),
			title      TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'OPEN',
			created_by TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			CHECK (status IN ('OPEN', 'CLOSED'))
		);

		CREATE INDEX IF NOT EXISTS idx_chat_threads_group ON chat_threads(group_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id        INTEGER NOT NULL REFERENCES chat_threads(id),
			group_id         TEXT NOT NULL REFERENCES groups(id),
			author_member_id TEXT NOT NULL,
			body             TEXT NOT NULL,
			created_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_thread ON chat_messages(thread_id, created_at);

		CREATE TABLE IF NOT EXISTS todo_items (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id   TEXT NOT NULL REFERENCES groups(id),
			title      TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'TODO',
			created_by TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			CHECK (status IN ('TODO', 'IN_PROGRESS', 'DONE'))
		);

		CREATE INDEX IF NOT EXISTS idx_todo_items_group ON todo_items(group_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS ledgers (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id     TEXT NOT NULL REFERENCES groups(id),
			title        TEXT NOT NULL,
			amount_cents INTEGER NOT NULL,
			entry_date   TEXT NOT NULL,
			created_by   TEXT,
			created_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ledgers_group ON ledgers(group_id, entry_date);

		CREATE TABLE IF NOT EXISTS approvals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ledger_id   INTEGER NOT NULL REFERENCES ledgers(id),
			group_id    TEXT NOT NULL REFERENCES groups(id),
			approved_by TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_approvals_ledger ON approvals(ledger_id);
		CREATE INDEX IF NOT EXISTS idx_approvals_group ON approvals(group_id);

		CREATE TABLE IF NOT EXISTS fiscal_year_closes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id  TEXT NOT NULL REFERENCES groups(id),
			year      INTEGER NOT NULL,
			closed_by TEXT,
			closed_at TEXT NOT NULL,

			UNIQUE(group_id, year)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema migrations for existing databases.
// These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// Migration: Add role column to invite_codes (databases created before
	// invites could grant a role). SQLite doesn't support ADD COLUMN IF NOT
	// EXISTS, so we check first.
	migrations := []struct {
		check  string
		apply  string
		table  string
		column string
	}{
		{
			check:  `SELECT 1 FROM pragma_table_info('invite_codes') WHERE name = 'role'`,
			apply:  `ALTER TABLE invite_codes ADD COLUMN role TEXT`,
			table:  "invite_codes",
			column: "role",
		},
		{
			check:  `SELECT 1 FROM pragma_table_info('chat_threads') WHERE name = 'created_by'`,
			apply:  `ALTER TABLE chat_threads ADD COLUMN created_by TEXT`,
			table:  "chat_threads",
			column: "created_by",
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(m.check).Scan(&exists)
		if err == nil {
			// Column already exists, skip
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to %s: %w", m.column, m.table, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", m.table)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}

// dbTime normalizes a timestamp to storage precision. Create methods run
// caller-supplied times through it so the struct they hand back carries the
// same value a later read will return.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// fmtTime formats a timestamp for storage.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)

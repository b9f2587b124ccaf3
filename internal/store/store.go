package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 2

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("v2: %w", err)
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS presets (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT NOT NULL UNIQUE,
		mode            TEXT NOT NULL DEFAULT 'round',
		rounds          INTEGER NOT NULL,
		work_seconds    INTEGER NOT NULL,
		rest_seconds    INTEGER NOT NULL DEFAULT 0,
		warning_seconds INTEGER NOT NULL DEFAULT 10,
		created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		updated_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		preset_id        INTEGER REFERENCES presets(id) ON DELETE SET NULL,
		mode             TEXT NOT NULL,
		rounds           INTEGER NOT NULL,
		work_seconds     INTEGER NOT NULL,
		rest_seconds     INTEGER NOT NULL,
		rounds_completed INTEGER NOT NULL DEFAULT 0,
		active_seconds   INTEGER NOT NULL DEFAULT 0,
		status           TEXT NOT NULL DEFAULT 'running',
		started_at       TEXT NOT NULL,
		ended_at         TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_preset  ON sessions(preset_id);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO presets (name, mode, rounds, work_seconds, rest_seconds, warning_seconds) VALUES
		('Boxing', 'round',    5, 180, 60, 10),
		('HIIT',   'interval', 8,  30, 15, 10),
		('Tabata', 'tabata',   8,  20, 10, 10);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('default_mode',  'round'),
		('last_preset',   ''),
		('cues_enabled',  'true'),
		('cues_bell',     'true'),
		('cues_debounce', 'true'),
		('history_days',  '7');
	`
	_, err := s.db.Exec(ddl)
	return err
}

// migrateV2 moves durations from whole seconds to milliseconds so sub-second
// configs are stored as given.
func (s *Store) migrateV2() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`ALTER TABLE presets RENAME COLUMN work_seconds TO work_ms`,
		`ALTER TABLE presets RENAME COLUMN rest_seconds TO rest_ms`,
		`ALTER TABLE presets RENAME COLUMN warning_seconds TO warning_ms`,
		`UPDATE presets SET work_ms = work_ms * 1000, rest_ms = rest_ms * 1000, warning_ms = warning_ms * 1000`,
		`ALTER TABLE sessions RENAME COLUMN work_seconds TO work_ms`,
		`ALTER TABLE sessions RENAME COLUMN rest_seconds TO rest_ms`,
		`UPDATE sessions SET work_ms = work_ms * 1000, rest_ms = rest_ms * 1000`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DefaultDBPath returns ~/.config/strikesense/strikesense.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "strikesense", "strikesense.db"), nil
}

package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an update or delete matches no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		pin_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		token_hash TEXT PRIMARY KEY,
		profile_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS quiz_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id INTEGER,
		session_key TEXT NOT NULL,
		language TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		correct INTEGER NOT NULL,
		total INTEGER NOT NULL,
		percent INTEGER NOT NULL,
		tier TEXT NOT NULL,
		completed_at DATETIME NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS quiz_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		selected INTEGER,
		correct INTEGER NOT NULL,
		timed_out INTEGER NOT NULL,
		FOREIGN KEY (result_id) REFERENCES quiz_results(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS quiz_result_badges (
		result_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (result_id, name),
		FOREIGN KEY (result_id) REFERENCES quiz_results(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS badges (
		profile_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		unlocked_at DATETIME NOT NULL,
		PRIMARY KEY (profile_id, name),
		FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS journal_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id INTEGER NOT NULL,
		mood TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		sensitive INTEGER NOT NULL DEFAULT 0,
		sealed BLOB,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_profile ON quiz_results(profile_id);
	CREATE INDEX IF NOT EXISTS idx_journal_profile ON journal_entries(profile_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

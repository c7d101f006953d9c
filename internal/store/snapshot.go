// Package store persists prerequisite discoveries between exploration
// sessions. The snapshot is advisory: a warmed cache saves oracle calls, but
// exploration is correct without it.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"noesis/internal/logging"
)

// SnapshotStore persists session prerequisite caches in SQLite.
type SnapshotStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSnapshotStore opens (or creates) the snapshot database at path.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps SQLite happy under the pure-Go driver.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SnapshotStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prereq_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		concept TEXT NOT NULL,
		prereqs_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, concept)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_session ON prereq_snapshots(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save persists one session's discovery cache.
func (s *SnapshotStore) Save(sessionID string, cache map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO prereq_snapshots (session_id, concept, prereqs_json)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id, concept) DO UPDATE SET prereqs_json = excluded.prereqs_json
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for concept, prereqs := range cache {
		data, err := json.Marshal(prereqs)
		if err != nil {
			return fmt.Errorf("failed to marshal prerequisites for %q: %w", concept, err)
		}
		if _, err := stmt.Exec(sessionID, concept, string(data)); err != nil {
			return fmt.Errorf("failed to insert %q: %w", concept, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	logging.Store("saved snapshot: session=%s concepts=%d", sessionID, len(cache))
	return nil
}

// LoadLatest returns the cache of the most recently written session, or an
// empty map if nothing has been saved yet.
func (s *SnapshotStore) LoadLatest() (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessionID string
	err := s.db.QueryRow(`
		SELECT session_id FROM prereq_snapshots
		ORDER BY created_at DESC, id DESC LIMIT 1
	`).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest session: %w", err)
	}
	return s.loadSession(sessionID)
}

// LoadSession returns the cache saved under a specific session ID.
func (s *SnapshotStore) LoadSession(sessionID string) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSession(sessionID)
}

func (s *SnapshotStore) loadSession(sessionID string) (map[string][]string, error) {
	rows, err := s.db.Query(`
		SELECT concept, prereqs_json FROM prereq_snapshots WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	cache := map[string][]string{}
	for rows.Next() {
		var concept, data string
		if err := rows.Scan(&concept, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var prereqs []string
		if err := json.Unmarshal([]byte(data), &prereqs); err != nil {
			return nil, fmt.Errorf("corrupt prerequisites for %q: %w", concept, err)
		}
		cache[concept] = prereqs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	logging.StoreDebug("loaded snapshot: session=%s concepts=%d", sessionID, len(cache))
	return cache, nil
}

// Sessions lists saved session IDs, newest first.
func (s *SnapshotStore) Sessions() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT session_id FROM prereq_snapshots
		GROUP BY session_id ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

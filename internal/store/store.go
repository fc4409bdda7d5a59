// Package store persists everything a task leaves behind: the answer cache
// keyed by semantic prompt digests, the append-only tool audit trail, and an
// overflow blob store for payloads too large to keep inline.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quorumlabs/quorum/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog (
	table_name TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS memory (
	prompt_key  TEXT PRIMARY KEY,
	prompt_text TEXT NOT NULL,
	answer_ref  TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audit (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    TEXT NOT NULL,
	tool_name  TEXT NOT NULL,
	args       TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_task ON audit(task_id);
`

// Store wraps the sqlite catalog plus the swap directory for spilled blobs.
type Store struct {
	db      *sql.DB
	swapDir string
	log     *logger.Logger
}

// Open opens (creating if needed) the catalog at dbPath and ensures swapDir
// exists. The schema bootstrap is idempotent.
func Open(dbPath, swapDir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.MkdirAll(swapDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create swap directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Register the logical tables in the catalog; re-runs are no-ops.
	for _, table := range []string{"memory", "audit"} {
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO catalog (table_name, created_at) VALUES (?, ?)`,
			table, time.Now().Unix()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to register table %s: %w", table, err)
		}
	}

	return &Store{db: db, swapDir: swapDir, log: log}, nil
}

// BootstrappedTables lists the logical tables recorded in the catalog.
func (s *Store) BootstrappedTables() ([]string, error) {
	rows, err := s.db.Query(`SELECT table_name FROM catalog ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

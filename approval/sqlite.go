package approval

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists approval decisions in <data_dir>/approvals.db. One
// row per permanently approved tool plus a flags table for the global
// override. No expiry; rows are overwritten on each user decision.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the approval database.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, "approvals.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open approval database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping approval database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize approval database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_approvals (
		tool TEXT PRIMARY KEY,
		policy TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS flags (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// PolicyFor implements Store.PolicyFor.
func (s *SQLiteStore) PolicyFor(tool string) (Policy, error) {
	yolo, err := s.Yolo()
	if err != nil {
		return PolicyPrompt, err
	}
	if yolo {
		return PolicyYolo, nil
	}

	var policy string
	err = s.db.QueryRow(`SELECT policy FROM tool_approvals WHERE tool = ?`, tool).Scan(&policy)
	if err == sql.ErrNoRows {
		return PolicyPrompt, nil
	}
	if err != nil {
		return PolicyPrompt, fmt.Errorf("failed to look up tool policy: %w", err)
	}

	if policy == "always" {
		return PolicyAlways, nil
	}
	return PolicyPrompt, nil
}

// Apply implements Store.Apply.
func (s *SQLiteStore) Apply(tool string, d Decision) error {
	// Every explicit per-tool decision clears the global override.
	if err := s.SetYolo(false); err != nil {
		return err
	}

	if d != DecisionAlways {
		// once/deny persist nothing beyond the current call
		return nil
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO tool_approvals (tool, policy) VALUES (?, 'always')`,
		tool,
	)
	if err != nil {
		return fmt.Errorf("failed to persist tool approval: %w", err)
	}

	return nil
}

// SetYolo implements Store.SetYolo.
func (s *SQLiteStore) SetYolo(enabled bool) error {
	value := 0
	if enabled {
		value = 1
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO flags (key, value) VALUES ('yolo', ?)`,
		value,
	)
	if err != nil {
		return fmt.Errorf("failed to set global override: %w", err)
	}

	return nil
}

// Yolo implements Store.Yolo.
func (s *SQLiteStore) Yolo() (bool, error) {
	var value int
	err := s.db.QueryRow(`SELECT value FROM flags WHERE key = 'yolo'`).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read global override: %w", err)
	}
	return value != 0, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

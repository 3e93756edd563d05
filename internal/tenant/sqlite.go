// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/staysync/internal/persistence/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS client_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLiteStore keeps the key in a client_state table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens path, creates the table and runs a quick integrity
// check.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("tenant: create store dir: %w", err)
	}
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tenant: init schema: %w", err)
	}
	if err := sqlite.QuickCheck(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key = ?`, Key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("tenant: sqlite get: %w", err)
	}
	return val, nil
}

func (s *SQLiteStore) Save(ctx context.Context, tenantID string) error {
	var err error
	if tenantID == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, Key)
	} else {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO client_state (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, Key, tenantID)
	}
	if err != nil {
		return fmt.Errorf("tenant: sqlite save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrCorrupt is returned when an integrity check reports problems.
var ErrCorrupt = errors.New("sqlite: integrity check failed")

// QuickCheck runs PRAGMA quick_check on db. Success is exactly one "ok" row;
// anything else is returned as ErrCorrupt with the diagnostic rows.
func QuickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "PRAGMA quick_check;")
	if err != nil {
		return fmt.Errorf("sqlite: quick_check: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return fmt.Errorf("sqlite: scan quick_check row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: quick_check: %w", err)
	}

	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: no rows returned", ErrCorrupt)
	}
	return fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(results, "; "))
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
)

// ResultRow is the last successfully computed result of a project, stored
// as its JSON encoding.
type ResultRow struct {
	Payload    []byte
	ComputedAt time.Time
}

// SaveResult replaces the project's result snapshot.
func (db *DB) SaveResult(ctx context.Context, projectID string, payload []byte, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO results (project_id, payload, computed_at) VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			payload     = excluded.payload,
			computed_at = excluded.computed_at
	`, projectID, string(payload), at.UTC())
	if err != nil {
		return fmt.Errorf("store: save result: %w", err)
	}
	return nil
}

// LatestResult returns the stored snapshot or apperr.ErrNotFound.
func (db *DB) LatestResult(ctx context.Context, projectID string) (*ResultRow, error) {
	var (
		row     ResultRow
		payload string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT payload, computed_at FROM results WHERE project_id = ?`, projectID,
	).Scan(&payload, &row.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest result: %w", err)
	}
	row.Payload = []byte(payload)
	return &row, nil
}

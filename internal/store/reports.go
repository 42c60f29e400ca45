package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/models"
)

// GetReport returns the project's report. A project without a saved report
// gets an empty one; an unknown project yields apperr.ErrNotFound.
func (db *DB) GetReport(ctx context.Context, projectID string) (*models.Report, error) {
	var r models.Report
	err := db.conn.QueryRowContext(ctx, `
		SELECT goal, functional_unit, boundaries, method, assumptions
		FROM reports WHERE project_id = ?
	`, projectID).Scan(&r.Goal, &r.FunctionalUnit, &r.Boundaries, &r.Method, &r.Assumptions)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := db.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
		return &models.Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get report: %w", err)
	}
	return &r, nil
}

// SaveReport upserts the project's report.
func (db *DB) SaveReport(ctx context.Context, projectID string, r models.Report) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := db.touchProject(ctx, tx, projectID, now); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return fmt.Errorf("store: touch project: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (project_id, goal, functional_unit, boundaries, method, assumptions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			goal            = excluded.goal,
			functional_unit = excluded.functional_unit,
			boundaries      = excluded.boundaries,
			method          = excluded.method,
			assumptions     = excluded.assumptions,
			updated_at      = excluded.updated_at
	`, projectID, r.Goal, r.FunctionalUnit, r.Boundaries, r.Method, r.Assumptions, now)
	if err != nil {
		return fmt.Errorf("store: upsert report: %w", err)
	}
	return tx.Commit()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/checksum"
)

// GraphRow is a stored graph document together with its revision checksum.
type GraphRow struct {
	ProjectID string
	Document  []byte
	Checksum  string
	UpdatedAt time.Time
}

// GetGraph returns the stored document for a project. A project that has
// never saved a graph yields apperr.ErrNotFound.
func (db *DB) GetGraph(ctx context.Context, projectID string) (*GraphRow, error) {
	var (
		row GraphRow
		doc string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT project_id, document, checksum, updated_at FROM graphs WHERE project_id = ?`, projectID,
	).Scan(&row.ProjectID, &doc, &row.Checksum, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get graph: %w", err)
	}
	row.Document = []byte(doc)
	return &row, nil
}

// Revision preconditions accepted by SaveGraph besides a stored checksum.
const (
	// AnyRevision matches whatever is stored, including no graph at all.
	AnyRevision = "*"
	// NoRevision matches only a project that has never saved a graph.
	NoRevision = "!"
)

// SaveGraph replaces the project's graph document. A non-empty ifMatch is a
// precondition: a stored checksum, AnyRevision or NoRevision. When it does
// not hold apperr.ErrConflict is returned and nothing is written.
func (db *DB) SaveGraph(ctx context.Context, projectID string, document []byte, ifMatch string) (*GraphRow, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := db.touchProject(ctx, tx, projectID, now); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("store: touch project: %w", err)
	}

	if ifMatch != "" && ifMatch != AnyRevision {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT checksum FROM graphs WHERE project_id = ?`, projectID).Scan(&current)
		exists := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: read graph checksum: %w", err)
		}
		if ifMatch == NoRevision {
			if exists {
				return nil, apperr.ErrConflict
			}
		} else if current != ifMatch {
			return nil, apperr.ErrConflict
		}
	}

	sum := checksum.Sum(document)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO graphs (project_id, document, checksum, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			document   = excluded.document,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, projectID, string(document), sum, now)
	if err != nil {
		return nil, fmt.Errorf("store: upsert graph: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit graph: %w", err)
	}
	return &GraphRow{ProjectID: projectID, Document: document, Checksum: sum, UpdatedAt: now}, nil
}

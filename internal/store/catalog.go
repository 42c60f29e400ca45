package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/starford/pcfledger/internal/models"
)

// CatalogChange lists the dataset ids touched by one catalog import step.
type CatalogChange struct {
	Created []int64
	Updated []int64
	Deleted []int64
}

// Empty reports whether the change touched no datasets.
func (c CatalogChange) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// CatalogChecksums returns the checksum of every imported catalog file
// keyed by its relative path.
func (db *DB) CatalogChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum FROM catalog_files`)
	if err != nil {
		return nil, fmt.Errorf("store: catalog checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, sum string
		if err := rows.Scan(&path, &sum); err != nil {
			return nil, err
		}
		out[path] = sum
	}
	return out, rows.Err()
}

// ReplaceCatalogFile makes the datasets originating from path equal to
// datasets. Rows are matched by name so ids stay stable across re-imports;
// names no longer present are deleted.
func (db *DB) ReplaceCatalogFile(ctx context.Context, path, sum string, datasets []models.Dataset) (CatalogChange, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return CatalogChange{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	change, err := syncOrigin(ctx, tx, path, datasets)
	if err != nil {
		return CatalogChange{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_files (path, checksum, imported_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET checksum = excluded.checksum, imported_at = excluded.imported_at
	`, path, sum, time.Now().UTC())
	if err != nil {
		return CatalogChange{}, fmt.Errorf("store: record catalog file: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return CatalogChange{}, fmt.Errorf("store: commit catalog file: %w", err)
	}
	return change, nil
}

// RemoveCatalogFile deletes every dataset imported from path and forgets
// the file.
func (db *DB) RemoveCatalogFile(ctx context.Context, path string) (CatalogChange, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return CatalogChange{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	change, err := syncOrigin(ctx, tx, path, nil)
	if err != nil {
		return CatalogChange{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_files WHERE path = ?`, path); err != nil {
		return CatalogChange{}, fmt.Errorf("store: forget catalog file: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return CatalogChange{}, fmt.Errorf("store: commit catalog removal: %w", err)
	}
	return change, nil
}

// syncOrigin upserts datasets under origin by name and deletes the rows of
// that origin whose name is not in datasets. Unknown method ids are
// stored as NULL.
func syncOrigin(ctx context.Context, tx *sql.Tx, origin string, datasets []models.Dataset) (CatalogChange, error) {
	existing := make(map[string]int64)
	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM datasets WHERE origin = ?`, origin)
	if err != nil {
		return CatalogChange{}, fmt.Errorf("store: read origin: %w", err)
	}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return CatalogChange{}, err
		}
		existing[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return CatalogChange{}, err
	}

	var change CatalogChange
	now := time.Now().UTC()
	seen := make(map[string]bool, len(datasets))
	for _, d := range datasets {
		if id, ok := existing[d.Name]; ok {
			_, err := tx.ExecContext(ctx, `
				UPDATE datasets SET unit = ?, value_co2e = ?, kind = ?, source = ?, year = ?, geo = ?,
					method_id = (SELECT id FROM methods WHERE id = ?), updated_at = ?
				WHERE id = ?
			`, d.Unit, d.ValueCO2e, string(d.Kind), d.Source, nullInt(d.Year), d.Geo, nullInt64(d.MethodID), now, id)
			if err != nil {
				return CatalogChange{}, fmt.Errorf("store: update %q: %w", d.Name, err)
			}
			if !seen[d.Name] {
				change.Updated = append(change.Updated, id)
			}
		} else {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO datasets (name, unit, value_co2e, kind, source, year, geo, method_id, origin, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT id FROM methods WHERE id = ?), ?, ?, ?)
			`, d.Name, d.Unit, d.ValueCO2e, string(d.Kind), d.Source, nullInt(d.Year), d.Geo, nullInt64(d.MethodID), origin, now, now)
			if err != nil {
				return CatalogChange{}, fmt.Errorf("store: insert %q: %w", d.Name, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return CatalogChange{}, err
			}
			existing[d.Name] = id
			change.Created = append(change.Created, id)
		}
		seen[d.Name] = true
	}

	for name, id := range existing {
		if seen[name] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id); err != nil {
			return CatalogChange{}, fmt.Errorf("store: delete %q: %w", name, err)
		}
		change.Deleted = append(change.Deleted, id)
	}
	slices.Sort(change.Deleted)
	return change, nil
}

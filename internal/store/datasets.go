package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/models"
)

const datasetColumns = `id, name, unit, value_co2e, kind, source, year, geo, method_id, origin, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(s rowScanner) (models.Dataset, error) {
	var (
		d        models.Dataset
		kind     string
		year     sql.NullInt64
		methodID sql.NullInt64
	)
	err := s.Scan(&d.ID, &d.Name, &d.Unit, &d.ValueCO2e, &kind, &d.Source, &year, &d.Geo, &methodID, &d.Origin, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	d.Kind = models.DatasetKind(kind)
	if year.Valid {
		y := int(year.Int64)
		d.Year = &y
	}
	if methodID.Valid {
		m := methodID.Int64
		d.MethodID = &m
	}
	return d, nil
}

func collectDatasets(rows *sql.Rows) ([]models.Dataset, error) {
	defer rows.Close()
	out := []models.Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan dataset: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// ListDatasets returns datasets matching f ordered by id.
func (db *DB) ListDatasets(ctx context.Context, f models.DatasetFilter) ([]models.Dataset, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, vals ...string) {
		where = append(where, cond)
		for _, v := range vals {
			args = append(args, "%"+v+"%")
		}
	}
	if f.Name != "" {
		add("name LIKE ?", f.Name)
	}
	if f.Source != "" {
		add("source LIKE ?", f.Source)
	}
	if f.Geo != "" {
		add("geo LIKE ?", f.Geo)
	}
	if f.Query != "" {
		add("(name LIKE ? OR source LIKE ? OR geo LIKE ?)", f.Query, f.Query, f.Query)
	}

	q := `SELECT ` + datasetColumns + ` FROM datasets`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id ASC`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list datasets: %w", err)
	}
	return collectDatasets(rows)
}

// DatasetsByIDs fetches all datasets whose id is in ids with one query.
// Unknown ids are silently absent from the result.
func (db *DB) DatasetsByIDs(ctx context.Context, ids []int64) ([]models.Dataset, error) {
	if len(ids) == 0 {
		return []models.Dataset{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE id IN (`+placeholders+`) ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: datasets by ids: %w", err)
	}
	return collectDatasets(rows)
}

// GetDataset returns a single dataset or apperr.ErrNotFound.
func (db *DB) GetDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get dataset: %w", err)
	}
	return &d, nil
}

// CreateDataset inserts d and returns the stored row. d.ID is ignored.
func (db *DB) CreateDataset(ctx context.Context, d models.Dataset) (*models.Dataset, error) {
	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO datasets (name, unit, value_co2e, kind, source, year, geo, method_id, origin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.Name, d.Unit, d.ValueCO2e, string(d.Kind), d.Source, nullInt(d.Year), d.Geo, nullInt64(d.MethodID), d.Origin, now, now)
	if err != nil {
		return nil, fmt.Errorf("store: insert dataset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: dataset id: %w", err)
	}
	return db.GetDataset(ctx, id)
}

// UpdateDataset overwrites every mutable column of the dataset with id d.ID.
func (db *DB) UpdateDataset(ctx context.Context, d models.Dataset) (*models.Dataset, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE datasets SET
			name       = ?,
			unit       = ?,
			value_co2e = ?,
			kind       = ?,
			source     = ?,
			year       = ?,
			geo        = ?,
			method_id  = ?,
			updated_at = ?
		WHERE id = ?
	`, d.Name, d.Unit, d.ValueCO2e, string(d.Kind), d.Source, nullInt(d.Year), d.Geo, nullInt64(d.MethodID), time.Now().UTC(), d.ID)
	if err != nil {
		return nil, fmt.Errorf("store: update dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.ErrNotFound
	}
	return db.GetDataset(ctx, d.ID)
}

// DeleteDataset removes a dataset. Graph items referencing it become
// dangling references, which aggregation tolerates.
func (db *DB) DeleteDataset(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListMethods returns all impact assessment methods ordered by id.
func (db *DB) ListMethods(ctx context.Context) ([]models.Method, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, gwp_set, description FROM methods ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list methods: %w", err)
	}
	defer rows.Close()
	out := []models.Method{}
	for rows.Next() {
		var m models.Method
		if err := rows.Scan(&m.ID, &m.Name, &m.GWPSet, &m.Description); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MethodExists reports whether a method with the given id exists.
func (db *DB) MethodExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM methods WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("store: method exists: %w", err)
	}
	return n > 0, nil
}

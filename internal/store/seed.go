package store

import (
	"context"
	"fmt"

	"github.com/starford/pcfledger/internal/models"
)

// SeedOrigin marks datasets created by Seed.
const SeedOrigin = "seed"

func seedDatasets(methodID int64) []models.Dataset {
	year := func(y int) *int { return &y }
	return []models.Dataset{
		{Name: "Strommix DE", Unit: "kWh", ValueCO2e: 0.401, Kind: models.KindEnergy, Source: "UBA", Year: year(2022), Geo: "DE", MethodID: &methodID},
		{Name: "Diesel", Unit: "l", ValueCO2e: 2.68, Kind: models.KindEnergy, Source: "ecoinvent", Year: year(2020), Geo: "EU", MethodID: &methodID},
		{Name: "LKW-Transport", Unit: "tkm", ValueCO2e: 0.12, Kind: models.KindMaterial, Source: "ecoinvent", Year: year(2020), Geo: "EU", MethodID: &methodID},
	}
}

// Seed installs the default impact method and a small starter catalog.
// Running it again leaves existing seed rows in place with their ids.
func (db *DB) Seed(ctx context.Context) (CatalogChange, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return CatalogChange{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO methods (id, name, gwp_set, description)
		VALUES (1, 'Default', 'GWP100', 'IPCC AR6 100-year global warming potential')
	`)
	if err != nil {
		return CatalogChange{}, fmt.Errorf("store: seed method: %w", err)
	}

	change, err := syncOrigin(ctx, tx, SeedOrigin, seedDatasets(1))
	if err != nil {
		return CatalogChange{}, err
	}
	if err := tx.Commit(); err != nil {
		return CatalogChange{}, fmt.Errorf("store: commit seed: %w", err)
	}
	return change, nil
}

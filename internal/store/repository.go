package store

import (
	"context"
	"time"

	"github.com/starford/pcfledger/internal/models"
)

// Catalog is the read side of the dataset catalog used by aggregation.
type Catalog interface {
	ListDatasets(ctx context.Context, f models.DatasetFilter) ([]models.Dataset, error)
	DatasetsByIDs(ctx context.Context, ids []int64) ([]models.Dataset, error)
}

// Repository defines every persistence operation the service layer needs.
// Consumers depend on this interface rather than *DB so tests can wrap it.
type Repository interface {
	Catalog

	GetDataset(ctx context.Context, id int64) (*models.Dataset, error)
	CreateDataset(ctx context.Context, d models.Dataset) (*models.Dataset, error)
	UpdateDataset(ctx context.Context, d models.Dataset) (*models.Dataset, error)
	DeleteDataset(ctx context.Context, id int64) error

	ListMethods(ctx context.Context) ([]models.Method, error)
	MethodExists(ctx context.Context, id int64) (bool, error)
	Seed(ctx context.Context) (CatalogChange, error)

	CreateProject(ctx context.Context, p models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	RenameProject(ctx context.Context, id, name string, at time.Time) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error

	GetGraph(ctx context.Context, projectID string) (*GraphRow, error)
	SaveGraph(ctx context.Context, projectID string, document []byte, ifMatch string) (*GraphRow, error)

	GetReport(ctx context.Context, projectID string) (*models.Report, error)
	SaveReport(ctx context.Context, projectID string, r models.Report) error

	SaveResult(ctx context.Context, projectID string, payload []byte, at time.Time) error
	LatestResult(ctx context.Context, projectID string) (*ResultRow, error)

	Ping(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)

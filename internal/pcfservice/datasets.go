package pcfservice

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pcfledger/internal/models"
	"github.com/starford/pcfledger/internal/store"
)

// DatasetInput carries dataset fields for create and partial update. Nil
// fields are left unchanged on update.
type DatasetInput struct {
	Name      *string  `json:"name"`
	Unit      *string  `json:"unit"`
	ValueCO2e *float64 `json:"valueCO2e"`
	Kind      *string  `json:"kind"`
	Source    *string  `json:"source"`
	Year      *int     `json:"year"`
	Geo       *string  `json:"geo"`
	MethodID  *int64   `json:"methodId"`
}

var errNotFinite = errors.New("must be a finite number")

func finite(value any) error {
	v, _ := value.(*float64)
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return errNotFinite
	}
	return nil
}

// Validate checks the fields that are present.
func (in DatasetInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&in.Unit, validation.NilOrNotEmpty, validation.Length(1, 32)),
		validation.Field(&in.ValueCO2e, validation.By(finite), validation.Min(0.0)),
		validation.Field(&in.Year, validation.Min(1900), validation.Max(2100)),
		validation.Field(&in.MethodID, validation.Min(int64(1))),
	)
}

func (in DatasetInput) validateCreate() error {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Unit, validation.Required),
		validation.Field(&in.ValueCO2e, validation.NotNil),
	); err != nil {
		return err
	}
	return in.Validate()
}

// apply copies present fields onto d. Kind is normalized only when given.
func (in DatasetInput) apply(d *models.Dataset) {
	if in.Name != nil {
		d.Name = strings.TrimSpace(*in.Name)
	}
	if in.Unit != nil {
		d.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.ValueCO2e != nil {
		d.ValueCO2e = *in.ValueCO2e
	}
	if in.Kind != nil {
		d.Kind = models.NormalizeKind(*in.Kind)
	}
	if in.Source != nil {
		d.Source = strings.TrimSpace(*in.Source)
	}
	if in.Year != nil {
		d.Year = in.Year
	}
	if in.Geo != nil {
		d.Geo = strings.TrimSpace(*in.Geo)
	}
	if in.MethodID != nil {
		d.MethodID = in.MethodID
	}
}

// ListDatasets returns catalog entries matching f.
func (s *Service) ListDatasets(ctx context.Context, f models.DatasetFilter) ([]models.Dataset, error) {
	return s.repo.ListDatasets(ctx, f)
}

// GetDataset returns a single dataset.
func (s *Service) GetDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	return s.repo.GetDataset(ctx, id)
}

// CreateDataset validates and stores a new dataset. Name, unit and
// valueCO2e are required; a missing kind becomes material.
func (s *Service) CreateDataset(ctx context.Context, in DatasetInput) (*models.Dataset, error) {
	if err := in.validateCreate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkMethod(ctx, in.MethodID); err != nil {
		return nil, err
	}
	d := models.Dataset{Kind: models.NormalizeKind("")}
	in.apply(&d)

	created, err := s.repo.CreateDataset(ctx, d)
	if err != nil {
		return nil, err
	}
	s.publish("dataset", "created", strconv.FormatInt(created.ID, 10), "", true)
	return created, nil
}

// UpdateDataset applies a partial update.
func (s *Service) UpdateDataset(ctx context.Context, id int64, in DatasetInput) (*models.Dataset, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkMethod(ctx, in.MethodID); err != nil {
		return nil, err
	}
	d, err := s.repo.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(d)

	updated, err := s.repo.UpdateDataset(ctx, *d)
	if err != nil {
		return nil, err
	}
	s.publish("dataset", "updated", strconv.FormatInt(id, 10), "", true)
	return updated, nil
}

// DeleteDataset removes a dataset. Graph items still referencing it stop
// contributing to totals.
func (s *Service) DeleteDataset(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDataset(ctx, id); err != nil {
		return err
	}
	s.publish("dataset", "deleted", strconv.FormatInt(id, 10), "", true)
	return nil
}

// ListMethods returns the impact assessment methods.
func (s *Service) ListMethods(ctx context.Context) ([]models.Method, error) {
	return s.repo.ListMethods(ctx)
}

// Seed installs the starter catalog.
func (s *Service) Seed(ctx context.Context) (store.CatalogChange, error) {
	change, err := s.repo.Seed(ctx)
	if err != nil {
		return change, err
	}
	s.publishCatalog(change)
	return change, nil
}

func (s *Service) checkMethod(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := s.repo.MethodExists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return invalid(validation.Errors{"methodId": errors.New("unknown method")})
	}
	return nil
}

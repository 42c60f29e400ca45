package pcfservice

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/pcfledger/internal/models"
)

// DefaultProjectName is used when a project is created without a name.
const DefaultProjectName = "New assessment"

var projectNameRules = []validation.Rule{validation.Required, validation.Length(1, 200)}

// CreateProject creates an empty project.
func (s *Service) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultProjectName
	}
	if err := validation.Validate(name, projectNameRules...); err != nil {
		return nil, invalid(validation.Errors{"name": err})
	}
	now := s.now().UTC()
	p := models.Project{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	s.publish("project", "created", p.ID, p.ID, false)
	return &p, nil
}

// ListProjects returns projects newest first.
func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.repo.ListProjects(ctx)
}

// GetProject returns a project.
func (s *Service) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.repo.GetProject(ctx, id)
}

// RenameProject changes a project's name.
func (s *Service) RenameProject(ctx context.Context, id, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, projectNameRules...); err != nil {
		return nil, invalid(validation.Errors{"name": err})
	}
	p, err := s.repo.RenameProject(ctx, id, name, s.now())
	if err != nil {
		return nil, err
	}
	s.publish("project", "updated", id, id, false)
	return p, nil
}

// DeleteProject removes a project with its graph, report and results.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.publish("project", "deleted", id, id, false)
	return nil
}

// GetReport returns the project's study documentation.
func (s *Service) GetReport(ctx context.Context, projectID string) (*models.Report, error) {
	return s.repo.GetReport(ctx, projectID)
}

// SaveReport replaces the project's study documentation.
func (s *Service) SaveReport(ctx context.Context, projectID string, r models.Report) (*models.Report, error) {
	if err := s.repo.SaveReport(ctx, projectID, r); err != nil {
		return nil, err
	}
	s.publish("report", "updated", projectID, projectID, false)
	return &r, nil
}

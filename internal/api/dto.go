package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pcfledger/internal/models"
	"github.com/starford/pcfledger/internal/pcfservice"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name string `json:"name" example:"Glass bottle 0.7l"`
}

// Validate implements validation.Validatable.
func (r CreateProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
	)
}

// RenameProjectRequest is the request body for renaming a project.
type RenameProjectRequest struct {
	Name string `json:"name" example:"Glass bottle 0.5l" validate:"required"`
}

// Validate implements validation.Validatable.
func (r RenameProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// AddProcessRequest is the request body for appending a process node.
type AddProcessRequest struct {
	Title string `json:"title" example:"Melting"`
	Stage string `json:"stage" example:"production"`
}

// Validate implements validation.Validatable. An empty stage means
// production; anything else must name a lifecycle phase.
func (r AddProcessRequest) Validate() error {
	phases := make([]any, len(models.Phases))
	for i, p := range models.Phases {
		phases[i] = string(p)
	}
	stage := strings.ToLower(strings.TrimSpace(r.Stage))
	return validation.Errors{
		"title": validation.Validate(r.Title, validation.Length(0, 200)),
		"stage": validation.Validate(stage, validation.In(phases...)),
	}.Filter()
}

// ReportRequest is the request body for saving a project report.
type ReportRequest struct {
	Goal           string `json:"goal"`
	FunctionalUnit string `json:"functionalUnit" example:"1 bottle, 0.7 l"`
	Boundaries     string `json:"boundaries" example:"cradle-to-gate"`
	Method         string `json:"method" example:"IPCC AR6 GWP100"`
	Assumptions    string `json:"assumptions"`
}

const maxReportField = 20000

// Validate implements validation.Validatable.
func (r ReportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Goal, validation.Length(0, maxReportField)),
		validation.Field(&r.FunctionalUnit, validation.Length(0, maxReportField)),
		validation.Field(&r.Boundaries, validation.Length(0, maxReportField)),
		validation.Field(&r.Method, validation.Length(0, maxReportField)),
		validation.Field(&r.Assumptions, validation.Length(0, maxReportField)),
	)
}

func (r ReportRequest) report() models.Report {
	return models.Report(r)
}

// CatalogFileRequest is the request body for writing a catalog file.
type CatalogFileRequest struct {
	Content string `json:"content" example:"datasets:\n  - {name: Steel, unit: kg, valueCO2e: 1.9}" validate:"required"`
}

// Validate implements validation.Validatable.
func (r CatalogFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

// CatalogFileResponse reports the outcome of a catalog file write.
type CatalogFileResponse struct {
	Path     string   `json:"path" example:"metals.yaml"`
	Datasets int      `json:"datasets" example:"2"`
	Warnings []string `json:"warnings"`
}

// GraphResponse wraps a project graph with its revision.
type GraphResponse struct {
	models.Graph
	Revision string `json:"revision,omitempty"`
}

// AddProcessResponse returns the new node and the updated graph.
type AddProcessResponse struct {
	Node  models.ProcessNode `json:"node"`
	Graph GraphResponse      `json:"graph"`
}

// DatasetInput is the dataset create/update body (aliased from the domain layer).
type DatasetInput = pcfservice.DatasetInput

// ResultResponse is an aggregation result (aliased from the domain layer).
type ResultResponse = pcfservice.Result

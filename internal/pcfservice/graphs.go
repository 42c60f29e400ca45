package pcfservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/graph"
	"github.com/starford/pcfledger/internal/models"
	"github.com/starford/pcfledger/internal/store"
)

// GraphState is a project graph with its revision tag. Revision is empty
// until the graph is saved for the first time.
type GraphState struct {
	Graph    models.Graph
	Revision string
}

// GetGraph returns the normalized graph of a project.
func (s *Service) GetGraph(ctx context.Context, projectID string) (*GraphState, error) {
	row, err := s.repo.GetGraph(ctx, projectID)
	if errors.Is(err, apperr.ErrNotFound) {
		if _, err := s.repo.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
		return &GraphState{Graph: graph.Empty()}, nil
	}
	if err != nil {
		return nil, err
	}
	g, err := graph.Decode(row.Document)
	if err != nil {
		// A stored document is always one we encoded; treat corruption as empty.
		s.logger.Warn("graph: stored document unreadable",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
		g = graph.Empty()
	}
	return &GraphState{Graph: g, Revision: row.Checksum}, nil
}

// SaveGraph normalizes a raw graph document and stores it. A non-empty
// ifMatch must equal the current revision.
func (s *Service) SaveGraph(ctx context.Context, projectID string, document []byte, ifMatch string) (*GraphState, error) {
	g, err := graph.Decode(document)
	if err != nil {
		return nil, invalid(err)
	}
	return s.storeGraph(ctx, projectID, g, ifMatch)
}

// AddProcess appends a new process node in the column of stage.
func (s *Service) AddProcess(ctx context.Context, projectID, title, stage string) (*models.ProcessNode, *GraphState, error) {
	current, err := s.GetGraph(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	g := current.Graph
	node := graph.AddProcess(&g, title, models.ParsePhase(stage))

	ifMatch := current.Revision
	if ifMatch == "" {
		ifMatch = store.NoRevision
	}
	state, err := s.storeGraph(ctx, projectID, g, ifMatch)
	if err != nil {
		return nil, nil, err
	}
	return &node, state, nil
}

func (s *Service) storeGraph(ctx context.Context, projectID string, g models.Graph, ifMatch string) (*GraphState, error) {
	g.LastSaved = s.now().UTC().Format(time.RFC3339)
	doc, err := graph.Encode(g)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.SaveGraph(ctx, projectID, doc, ifMatch)
	if err != nil {
		return nil, err
	}
	s.publish("graph", "updated", projectID, projectID, true)
	return &GraphState{Graph: g, Revision: row.Checksum}, nil
}

package pcfservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/emissions"
	"github.com/starford/pcfledger/internal/models"
)

// Warning texts returned with degraded results.
const (
	WarnCatalogStale       = "dataset catalog unavailable; showing last computed result"
	WarnCatalogUnavailable = "dataset catalog unavailable; no previous result to show"
)

// Result is an aggregation outcome plus availability metadata. Stale is set
// when the numbers come from an earlier snapshot.
type Result struct {
	models.AggregationResult
	Stale      bool      `json:"stale,omitempty"`
	Warning    string    `json:"warning,omitempty"`
	ComputedAt time.Time `json:"computedAt"`
}

// ProjectResults aggregates the project's stored graph by phase and
// process. Successful results are snapshotted; when the catalog cannot be
// read the last snapshot is returned as stale, or an empty result when
// none exists. Only failing to load the graph itself is an error.
func (s *Service) ProjectResults(ctx context.Context, projectID string) (*Result, error) {
	state, err := s.GetGraph(ctx, projectID)
	if err != nil {
		return nil, err
	}

	datasets, err := s.repo.DatasetsByIDs(ctx, emissions.NodeDatasetIDs(state.Graph.Nodes))
	if err != nil {
		s.logger.Warn("results: catalog fetch failed",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
		return s.fallbackResult(ctx, projectID), nil
	}

	res := &Result{
		AggregationResult: emissions.AggregateTop(state.Graph.Nodes, datasets, s.processHotspots),
		ComputedAt:        s.now().UTC(),
	}
	if payload, err := json.Marshal(res); err == nil {
		if err := s.repo.SaveResult(ctx, projectID, payload, res.ComputedAt); err != nil {
			s.logger.Warn("results: snapshot failed",
				slog.String("project_id", projectID),
				slog.String("error", err.Error()))
		}
	}
	return res, nil
}

func (s *Service) fallbackResult(ctx context.Context, projectID string) *Result {
	row, err := s.repo.LatestResult(ctx, projectID)
	if err == nil {
		var prev Result
		if jsonErr := json.Unmarshal(row.Payload, &prev); jsonErr == nil {
			prev.Stale = true
			prev.Warning = WarnCatalogStale
			prev.ComputedAt = row.ComputedAt
			return &prev
		}
	} else if !errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warn("results: snapshot read failed",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
	}
	return &Result{
		AggregationResult: emissions.AggregateTop(nil, nil, s.processHotspots),
		Warning:           WarnCatalogUnavailable,
		ComputedAt:        s.now().UTC(),
	}
}

// Aggregate runs the phase/process variant over ad hoc nodes. A catalog
// failure yields an empty result with a warning.
func (s *Service) Aggregate(ctx context.Context, nodes []models.ProcessNode) *Result {
	datasets, err := s.repo.DatasetsByIDs(ctx, emissions.NodeDatasetIDs(nodes))
	if err != nil {
		s.logger.Warn("aggregate: catalog fetch failed", slog.String("error", err.Error()))
		return &Result{
			AggregationResult: emissions.AggregateTop(nil, nil, s.processHotspots),
			Warning:           WarnCatalogUnavailable,
			ComputedAt:        s.now().UTC(),
		}
	}
	return &Result{
		AggregationResult: emissions.AggregateTop(nodes, datasets, s.processHotspots),
		ComputedAt:        s.now().UTC(),
	}
}

// ComputeEdges runs the edge variant. The referenced datasets are fetched
// with a single batched lookup before aggregation.
func (s *Service) ComputeEdges(ctx context.Context, edges []models.FlowEdge) *Result {
	datasets, err := s.repo.DatasetsByIDs(ctx, emissions.DatasetIDs(edges))
	if err != nil {
		s.logger.Warn("compute: catalog fetch failed", slog.String("error", err.Error()))
		return &Result{
			AggregationResult: emissions.AggregateEdges(nil, nil),
			Warning:           WarnCatalogUnavailable,
			ComputedAt:        s.now().UTC(),
		}
	}
	return &Result{
		AggregationResult: emissions.AggregateEdges(edges, datasets),
		ComputedAt:        s.now().UTC(),
	}
}

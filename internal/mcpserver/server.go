// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes pcfledger tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pcfledger/internal/apperr"
	"github.com/starford/pcfledger/internal/graph"
	"github.com/starford/pcfledger/internal/models"
	"github.com/starford/pcfledger/internal/pcfservice"
)

const graphFormatURI = "pcf://graph-format"

// Server wraps the MCP server with pcfledger tools.
type Server struct {
	mcp *server.MCPServer
	svc *pcfservice.Service
}

// New creates a new MCP server with all pcfledger tools registered.
func New(svc *pcfservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"pcfledger",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_datasets",
		mcp.WithDescription("List emission factor datasets (kg CO2e per unit). "+
			"Optionally filter by a substring of name, source or geography."),
		mcp.WithString("query", mcp.Description("Substring matched against name, source and geo")),
	), s.listDatasets)

	s.mcp.AddTool(mcp.NewTool("get_dataset",
		mcp.WithDescription("Get one emission factor dataset by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Dataset id")),
	), s.getDataset)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List PCF assessment projects, newest first."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("project_results",
		mcp.WithDescription("Aggregate a project's process graph into total kg CO2e, "+
			"per-phase totals (with phase names, in lifecycle order), per-process totals and hotspots."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	), s.projectResults)

	s.mcp.AddTool(mcp.NewTool("compute_edges",
		mcp.WithDescription("Compute the total kg CO2e and the top 10 hotspots of a graph "+
			"document from its flow edges. Read the pcf://graph-format resource "+
			"or call get_graph_format for the document structure."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph document as JSON")),
	), s.computeEdges)

	s.mcp.AddTool(mcp.NewTool("normalize_kind",
		mcp.WithDescription("Map a free-text dataset kind (e.g. Energie, Abfall) to its canonical value."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Free-text kind")),
	), s.normalizeKind)

	s.mcp.AddTool(mcp.NewTool("get_graph_format",
		mcp.WithDescription("Returns the graph document contract used by projects and compute_edges."),
	), s.getGraphFormat)

	// Resource: graph document contract.
	s.mcp.AddResource(
		mcp.NewResource(graphFormatURI, "Graph Document Format",
			mcp.WithResourceDescription("Structure of the process graph documents pcfledger stores and aggregates."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGraphFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error, what string) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", what))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listDatasets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListDatasets(ctx, models.DatasetFilter{Query: req.GetString("query", "")})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) getDataset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetDataset(ctx, int64(id))
	if err != nil {
		return errorResult(err, fmt.Sprintf("dataset %d", id)), nil
	}
	return jsonResult(d)
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.svc.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(projects)
}

func (s *Server) projectResults(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ProjectResults(ctx, id)
	if err != nil {
		return errorResult(err, "project "+id), nil
	}
	out := projectResultsOutput{Result: res, Phases: make([]phaseTotal, 0, len(models.Phases))}
	for _, p := range models.Phases {
		out.Phases = append(out.Phases, phaseTotal{Phase: p, Label: p.Label(), KgCO2e: res.ByPhase[p]})
	}
	return jsonResult(out)
}

// projectResultsOutput adds the per-phase totals in display order with
// their human-readable names.
type projectResultsOutput struct {
	*pcfservice.Result
	Phases []phaseTotal `json:"phases"`
}

type phaseTotal struct {
	Phase  models.Phase `json:"phase"`
	Label  string       `json:"label"`
	KgCO2e float64      `json:"kgCO2e"`
}

func (s *Server) computeEdges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := graph.Decode([]byte(doc))
	if err != nil {
		return mcp.NewToolResultError("invalid graph document: " + err.Error()), nil
	}
	return jsonResult(s.svc.ComputeEdges(ctx, g.Edges))
}

func (s *Server) normalizeKind(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(models.NormalizeKind(raw))), nil
}

func (s *Server) getGraphFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GraphFormatContract), nil
}

func (s *Server) readGraphFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      graphFormatURI,
			MIMEType: "text/markdown",
			Text:     GraphFormatContract,
		},
	}, nil
}

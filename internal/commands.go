package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/pcfledger/internal/graph"
	"github.com/starford/pcfledger/internal/mcpserver"
	"github.com/starford/pcfledger/internal/pcfservice"
	"github.com/starford/pcfledger/internal/sse"
)

// RunMCP serves the MCP tools over stdio. Stdout carries the protocol, so
// callers should pass a logger writing elsewhere.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ctx, sse.Discard)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	app.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc).ServeStdio()
}

// Seed installs the starter methods and datasets.
func Seed(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ctx, sse.Discard)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	change, err := rt.svc.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	app.logger.Info("Catalog seeded",
		slog.Int("created", len(change.Created)),
		slog.Int("updated", len(change.Updated)))
	return nil
}

// Compute aggregates the graph document at path against the configured
// catalog and writes the result as JSON to out. edges selects the edge
// variant; otherwise nodes are aggregated by phase and process.
func Compute(ctx context.Context, path string, edges bool, out io.Writer, opts ...Option) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read graph: %w", err)
	}
	g, err := graph.Decode(data)
	if err != nil {
		return fmt.Errorf("parse graph %s: %w", path, err)
	}

	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ctx, sse.Discard)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	var res *pcfservice.Result
	if edges {
		res = rt.svc.ComputeEdges(ctx, g.Edges)
	} else {
		res = rt.svc.Aggregate(ctx, g.Nodes)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

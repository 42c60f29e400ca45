package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pcfledger/internal/catalogsync"
	"github.com/starford/pcfledger/internal/pcfservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// syncer, if non-nil, enables the catalog file routes.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *pcfservice.Service, syncer *catalogsync.Syncer, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Dataset catalog.
	r.Get("/datasets", h.ListDatasets)
	r.Post("/datasets", h.CreateDataset)
	r.Get("/datasets/{id}", h.GetDataset)
	r.Put("/datasets/{id}", h.UpdateDataset)
	r.Delete("/datasets/{id}", h.DeleteDataset)
	r.Get("/methods", h.ListMethods)

	// Projects.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", h.GetProject)
		r.Put("/", h.RenameProject)
		r.Delete("/", h.DeleteProject)
		r.Get("/graph", h.GetGraph)
		r.Put("/graph", h.SaveGraph)
		r.Post("/graph/processes", h.AddProcess)
		r.Get("/report", h.GetReport)
		r.Put("/report", h.SaveReport)
		r.Get("/results", h.ProjectResults)
	})

	// Stateless computations.
	r.Post("/pcf/aggregate", h.Aggregate)
	r.Post("/pcf/compute", h.Compute)

	if syncer != nil {
		ch := NewCatalogHandler(syncer)
		r.Get("/catalog/files", ch.ListFiles)
		r.Put("/catalog/files/*", ch.PutFile)
		r.Delete("/catalog/files/*", ch.DeleteFile)
		r.Post("/catalog/sync", ch.Sync)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

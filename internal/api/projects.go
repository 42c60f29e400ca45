package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pcfledger/internal/checksum"
	"github.com/starford/pcfledger/internal/pcfservice"
)

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects, newest first
//	@Tags			projects
//	@Produce		json
//	@Success		200	{array}	models.Project
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeError(w, err, "list projects")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	false	"Project"
//	@Success		201		{object}	models.Project
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req.Name)
	if err != nil {
		writeError(w, err, "create project")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProject handles GET /api/projects/{id}.
//
//	@Summary		Get a project
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	models.Project
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err, "get project", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RenameProject handles PUT /api/projects/{id}.
//
//	@Summary		Rename a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Project id"
//	@Param			body	body		RenameProjectRequest	true	"New name"
//	@Success		200		{object}	models.Project
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [put]
func (h *Handler) RenameProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RenameProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.svc.RenameProject(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, err, "rename project", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/projects/{id}.
//
//	@Summary		Delete a project with its graph, report and results
//	@Tags			projects
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	okResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteProject(r.Context(), id); err != nil {
		writeError(w, err, "delete project", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func writeGraph(w http.ResponseWriter, status int, state *pcfservice.GraphState) {
	if state.Revision != "" {
		w.Header().Set("ETag", checksum.ETag(state.Revision))
	}
	writeJSON(w, status, GraphResponse{Graph: state.Graph, Revision: state.Revision})
}

// GetGraph handles GET /api/projects/{id}/graph.
//
//	@Summary		Get the process graph of a project
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	GraphResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/graph [get]
func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := h.svc.GetGraph(r.Context(), id)
	if err != nil {
		writeError(w, err, "get graph", slog.String("project_id", id))
		return
	}
	writeGraph(w, http.StatusOK, state)
}

// SaveGraph handles PUT /api/projects/{id}/graph.
//
//	@Summary		Replace the process graph with optimistic concurrency
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string	true	"Project id"
//	@Param			If-Match	header		string	false	"Revision returned by the last read"
//	@Success		200			{object}	GraphResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/graph [put]
func (h *Handler) SaveGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	ifMatch := checksum.ParseETag(r.Header.Get("If-Match"))

	state, err := h.svc.SaveGraph(r.Context(), id, body, ifMatch)
	if err != nil {
		writeError(w, err, "save graph", slog.String("project_id", id))
		return
	}
	writeGraph(w, http.StatusOK, state)
}

// AddProcess handles POST /api/projects/{id}/graph/processes.
//
//	@Summary		Append a process node to the graph
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Project id"
//	@Param			body	body		AddProcessRequest	false	"Title and stage"
//	@Success		201		{object}	AddProcessResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/graph/processes [post]
func (h *Handler) AddProcess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req AddProcessRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	node, state, err := h.svc.AddProcess(r.Context(), id, req.Title, req.Stage)
	if err != nil {
		writeError(w, err, "add process", slog.String("project_id", id))
		return
	}
	if state.Revision != "" {
		w.Header().Set("ETag", checksum.ETag(state.Revision))
	}
	writeJSON(w, http.StatusCreated, AddProcessResponse{
		Node:  *node,
		Graph: GraphResponse{Graph: state.Graph, Revision: state.Revision},
	})
}

// GetReport handles GET /api/projects/{id}/report.
//
//	@Summary		Get the study report of a project
//	@Tags			report
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	models.Report
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/report [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.svc.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, err, "get report", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// SaveReport handles PUT /api/projects/{id}/report.
//
//	@Summary		Replace the study report of a project
//	@Tags			report
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Project id"
//	@Param			body	body		ReportRequest	true	"Report"
//	@Success		200		{object}	models.Report
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/report [put]
func (h *Handler) SaveReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rep, err := h.svc.SaveReport(r.Context(), id, req.report())
	if err != nil {
		writeError(w, err, "save report", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ProjectResults handles GET /api/projects/{id}/results.
//
//	@Summary		Emission totals by phase and process with hotspots
//	@Tags			results
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	ResultResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/results [get]
func (h *Handler) ProjectResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.svc.ProjectResults(r.Context(), id)
	if err != nil {
		writeError(w, err, "project results", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

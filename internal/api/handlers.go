package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pcfledger/internal/models"
	"github.com/starford/pcfledger/internal/pcfservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *pcfservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pcfservice.Service) *Handler {
	return &Handler{svc: svc}
}

func datasetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid dataset id"))
		return 0, false
	}
	return id, true
}

// ListDatasets handles GET /api/datasets.
//
//	@Summary		List emission factor datasets
//	@Tags			datasets
//	@Produce		json
//	@Param			name	query		string	false	"Name contains"
//	@Param			source	query		string	false	"Source contains"
//	@Param			geo		query		string	false	"Geography contains"
//	@Param			q		query		string	false	"Matches name, source or geo"
//	@Success		200		{array}		models.Dataset
//	@Security		BearerAuth
//	@Router			/datasets [get]
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.ListDatasets(r.Context(), models.DatasetFilter{
		Name:   q.Get("name"),
		Source: q.Get("source"),
		Geo:    q.Get("geo"),
		Query:  q.Get("q"),
	})
	if err != nil {
		writeError(w, err, "list datasets")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetDataset handles GET /api/datasets/{id}.
//
//	@Summary		Get a dataset
//	@Tags			datasets
//	@Produce		json
//	@Param			id	path		int	true	"Dataset id"
//	@Success		200	{object}	models.Dataset
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasets/{id} [get]
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.GetDataset(r.Context(), id)
	if err != nil {
		writeError(w, err, "get dataset", slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateDataset handles POST /api/datasets.
//
//	@Summary		Create a dataset
//	@Tags			datasets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DatasetInput	true	"Dataset"
//	@Success		201		{object}	models.Dataset
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasets [post]
func (h *Handler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var in DatasetInput
	if !decodeJSON(w, r, &in) {
		return
	}
	d, err := h.svc.CreateDataset(r.Context(), in)
	if err != nil {
		writeError(w, err, "create dataset")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDataset handles PUT /api/datasets/{id}. Absent fields are kept.
//
//	@Summary		Update a dataset
//	@Tags			datasets
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Dataset id"
//	@Param			body	body		DatasetInput	true	"Fields to change"
//	@Success		200		{object}	models.Dataset
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasets/{id} [put]
func (h *Handler) UpdateDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	var in DatasetInput
	if !decodeJSON(w, r, &in) {
		return
	}
	d, err := h.svc.UpdateDataset(r.Context(), id, in)
	if err != nil {
		writeError(w, err, "update dataset", slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDataset handles DELETE /api/datasets/{id}.
//
//	@Summary		Delete a dataset
//	@Tags			datasets
//	@Param			id	path		int	true	"Dataset id"
//	@Success		200	{object}	okResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasets/{id} [delete]
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteDataset(r.Context(), id); err != nil {
		writeError(w, err, "delete dataset", slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// ListMethods handles GET /api/methods.
//
//	@Summary		List impact assessment methods
//	@Tags			datasets
//	@Produce		json
//	@Success		200	{array}	models.Method
//	@Security		BearerAuth
//	@Router			/methods [get]
func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.svc.ListMethods(r.Context())
	if err != nil {
		writeError(w, err, "list methods")
		return
	}
	writeJSON(w, http.StatusOK, methods)
}

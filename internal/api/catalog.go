package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pcfledger/internal/catalogsync"
)

// CatalogHandler exposes the catalog directory over HTTP.
type CatalogHandler struct {
	syncer *catalogsync.Syncer
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(syncer *catalogsync.Syncer) *CatalogHandler {
	return &CatalogHandler{syncer: syncer}
}

// filePath extracts the catalog file path from the URL (everything after
// /api/catalog/files/). Encoded slashes are accepted.
func filePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListFiles handles GET /api/catalog/files.
//
//	@Summary		List catalog files
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{array}	storage.FileInfo
//	@Security		BearerAuth
//	@Router			/catalog/files [get]
func (h *CatalogHandler) ListFiles(w http.ResponseWriter, _ *http.Request) {
	files, err := h.syncer.Files()
	if err != nil {
		writeError(w, err, "list catalog files")
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// PutFile handles PUT /api/catalog/files/*.
//
//	@Summary		Write and import a catalog file
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"File path"
//	@Param			body	body		CatalogFileRequest	true	"YAML or JSON content"
//	@Success		200		{object}	CatalogFileResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalog/files/{path} [put]
func (h *CatalogHandler) PutFile(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req CatalogFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.syncer.WriteFile(r.Context(), path, []byte(req.Content))
	if err != nil {
		writeError(w, err, "write catalog file", slog.String("path", path))
		return
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, CatalogFileResponse{Path: path, Datasets: len(res.Datasets), Warnings: warnings})
}

// DeleteFile handles DELETE /api/catalog/files/*.
//
//	@Summary		Delete a catalog file and its datasets
//	@Tags			catalog
//	@Param			path	path		string	true	"File path"
//	@Success		200		{object}	okResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalog/files/{path} [delete]
func (h *CatalogHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.syncer.DeleteFile(r.Context(), path); err != nil {
		writeError(w, err, "delete catalog file", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Sync handles POST /api/catalog/sync.
//
//	@Summary		Re-scan the catalog directory
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	catalogsync.Summary
//	@Security		BearerAuth
//	@Router			/catalog/sync [post]
func (h *CatalogHandler) Sync(w http.ResponseWriter, r *http.Request) {
	sum, err := h.syncer.Sync(r.Context())
	if err != nil {
		writeError(w, err, "catalog sync")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

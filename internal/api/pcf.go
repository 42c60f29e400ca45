package api

import (
	"io"
	"net/http"

	"github.com/starford/pcfledger/internal/graph"
	"github.com/starford/pcfledger/internal/models"
)

func readGraph(w http.ResponseWriter, r *http.Request) (models.Graph, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return models.Graph{}, false
	}
	g, err := graph.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return models.Graph{}, false
	}
	return g, true
}

// Aggregate handles POST /api/pcf/aggregate.
//
//	@Summary		Phase and process aggregation over ad hoc nodes
//	@Tags			pcf
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Graph	true	"Graph document; only nodes are used"
//	@Success		200		{object}	ResultResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pcf/aggregate [post]
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	g, ok := readGraph(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Aggregate(r.Context(), g.Nodes))
}

// Compute handles POST /api/pcf/compute.
//
//	@Summary		Edge based total with the top 10 hotspots
//	@Tags			pcf
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Graph	true	"Graph document; only edges are used"
//	@Success		200		{object}	ResultResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pcf/compute [post]
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	g, ok := readGraph(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ComputeEdges(r.Context(), g.Edges))
}

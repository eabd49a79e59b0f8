package rest

import (
	"encoding/json"
	"net/http"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

type slicesRequest struct {
	Slices []domain.Slice `json:"slices"`
}

type tempoRequest struct {
	TapTempo   *float64 `json:"tapTempo"`
	BeatOffset *float64 `json:"beatOffset"`
}

// GetAnalysis handles GET /tracks/{id}/analysis
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Analysis(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetSlices handles GET /tracks/{id}/slices
func (h *Handler) GetSlices(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetSlices(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slicesRequest{Slices: out})
}

// PutSlices handles PUT /tracks/{id}/slices. The body replaces the full set.
func (h *Handler) PutSlices(w http.ResponseWriter, r *http.Request) {
	var req slicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Slices == nil {
		req.Slices = []domain.Slice{}
	}
	out, err := h.svc.UpsertSlices(r.Context(), r.PathValue("id"), req.Slices)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slicesRequest{Slices: out})
}

// PutTempo handles PUT /tracks/{id}/tempo. Null values clear the override.
func (h *Handler) PutTempo(w http.ResponseWriter, r *http.Request) {
	var req tempoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	tt, err := h.svc.SetTrackTempo(r.Context(), r.PathValue("id"), req.TapTempo, req.BeatOffset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tt)
}

package rest

import (
	"encoding/json"
	"net/http"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

type queueRequest struct {
	DeviceID string `json:"deviceId"`
	TrackURI string `json:"trackUri"`
}

// Play handles POST /player/play
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	var req domain.PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.svc.PlayOnDevice(r.Context(), req); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Queue handles POST /player/queue
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.svc.AddToQueue(r.Context(), req.DeviceID, req.TrackURI); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

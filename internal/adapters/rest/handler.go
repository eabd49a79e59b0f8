// Package rest exposes the backend services over HTTP.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/services"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    *services.Orchestrator
	logger *log.Logger
	router *http.ServeMux
	next   http.Handler
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Orchestrator, logger *log.Logger) *Handler {
	h := &Handler{
		svc:    svc,
		logger: logger,
		router: http.NewServeMux(),
	}
	h.routes()
	h.next = requestLog(logger, h.router)
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.next.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	h.router.HandleFunc("GET /playlists", h.ListPlaylists)
	h.router.HandleFunc("GET /playlists/{id}/tracks", h.ListPlaylistTracks)
	h.router.HandleFunc("POST /playlists/{id}/sort", h.SortPlaylist)
	h.router.HandleFunc("DELETE /playlists/{id}/tracks/{trackID}", h.RemoveTrack)

	h.router.HandleFunc("POST /player/play", h.Play)
	h.router.HandleFunc("POST /player/queue", h.Queue)

	h.router.HandleFunc("GET /tracks/{id}/analysis", h.GetAnalysis)
	h.router.HandleFunc("GET /tracks/{id}/slices", h.GetSlices)
	h.router.HandleFunc("PUT /tracks/{id}/slices", h.PutSlices)
	h.router.HandleFunc("PUT /tracks/{id}/tempo", h.PutTempo)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidSlice):
		status, code = http.StatusBadRequest, "invalid_slice"
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrNoDevice):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrDeviceUnavailable):
		status, code = http.StatusConflict, "device_unavailable"
	}
	if status == http.StatusInternalServerError {
		h.logger.Errorf("rest: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "invalid_argument"})
}

// cursorParam parses the optional ?cursor= query parameter.
func cursorParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("cursor")
	if raw == "" {
		return 0, true
	}
	cursor, err := strconv.Atoi(raw)
	if err != nil || cursor < 0 {
		return 0, false
	}
	return cursor, true
}

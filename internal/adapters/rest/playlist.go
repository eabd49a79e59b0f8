package rest

import (
	"net/http"
)

// ListPlaylists handles GET /playlists?cursor=
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	cursor, ok := cursorParam(r)
	if !ok {
		badRequest(w, "cursor must be a non-negative integer")
		return
	}
	page, err := h.svc.Playlists(r.Context(), cursor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListPlaylistTracks handles GET /playlists/{id}/tracks?cursor=
func (h *Handler) ListPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	cursor, ok := cursorParam(r)
	if !ok {
		badRequest(w, "cursor must be a non-negative integer")
		return
	}
	page, err := h.svc.PlaylistTracks(r.Context(), r.PathValue("id"), cursor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SortPlaylist handles POST /playlists/{id}/sort
func (h *Handler) SortPlaylist(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.svc.SortByTempo(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tracks})
}

// RemoveTrack handles DELETE /playlists/{id}/tracks/{trackID}
func (h *Handler) RemoveTrack(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveTrack(r.Context(), r.PathValue("id"), r.PathValue("trackID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

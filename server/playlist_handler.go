package server

import (
	"fmt"
	"net/http"

	"TuneBox/core/apperr"

	"github.com/gorilla/mux"
)

// PlaylistRequest 创建或重命名歌单的请求体
type PlaylistRequest struct {
	Name string `json:"name"`
}

func callerID(r *http.Request) string {
	id, _ := IdentityFromContext(r.Context())
	return id.UserID
}

// CreatePlaylistHandler creates a playlist owned by the caller.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.playlists.CreatePlaylist(r.Context(), req.Name, callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.playlists.GetPlaylistByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p == nil {
		writeError(w, r, fmt.Errorf("%w: playlist %d", apperr.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) RenamePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.playlists.RenamePlaylist(r.Context(), id, req.Name, callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.playlists.DeletePlaylist(r.Context(), id, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) AddSongToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	songID, err := pathInt64(r, "songId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.playlists.AddSongToPlaylist(r.Context(), id, songID, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) RemoveSongFromPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	songID, err := pathInt64(r, "songId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.playlists.RemoveSongFromPlaylist(r.Context(), id, songID, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUserPlaylistsHandler lists any user's playlists; no auth required.
func (h *APIHandler) GetUserPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.GetUserPlaylists(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

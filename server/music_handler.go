package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"TuneBox/core/apperr"
	"TuneBox/core/catalog"
	"TuneBox/logger"

	"github.com/gorilla/mux"
)

// multipart 表单中超过该大小的部分写入临时文件
const multipartMemory = 32 << 20

// GetSongsHandler pages through all songs: ?skip=&count=
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := queryInt(r, "count", catalog.DefaultPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	songs, err := h.catalog.GetAllSongs(r.Context(), skip, count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *APIHandler) SearchSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.catalog.SearchSongs(r.Context(), r.URL.Query().Get("searchTerm"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	song, err := h.catalog.GetSongByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if song == nil {
		writeError(w, r, fmt.Errorf("%w: song %d", apperr.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// UploadSongHandler ingests a multipart upload: name, author, genres, mp3File.
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", apperr.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("mp3File")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: mp3File is required", apperr.ErrValidation))
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.UploadTimeout)
	defer cancel()

	logger.Info("[Upload] 收到上传",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size))

	song, err := h.catalog.AddSong(ctx, catalog.AddSongInput{
		Name:    r.FormValue("name"),
		Author:  r.FormValue("author"),
		Genres:  formGenres(r),
		Audio:   file,
		Size:    header.Size,
		BaseURL: baseURL(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// formGenres accepts repeated genres fields as well as comma separated lists.
func formGenres(r *http.Request) []string {
	var genres []string
	for _, v := range r.MultipartForm.Value["genres"] {
		genres = append(genres, strings.Split(v, ",")...)
	}
	return genres
}

// baseURL returns scheme://host of the request.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.catalog.DeleteSong(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, fmt.Errorf("%w: song %d", apperr.ErrNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) GetGenresHandler(w http.ResponseWriter, r *http.Request) {
	genres, err := h.catalog.GetAllGenres(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (h *APIHandler) GetSongsByGenreHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.catalog.GetSongsByGenre(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *APIHandler) DeleteGenreHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteGenre(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

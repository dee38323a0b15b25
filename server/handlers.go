package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"TuneBox/config"
	"TuneBox/core/apperr"
	"TuneBox/core/auth"
	"TuneBox/core/catalog"
	"TuneBox/core/playlist"
	"TuneBox/logger"
	"TuneBox/storage"

	"github.com/gorilla/mux"
)

// maxJSONBody 限制普通 JSON 请求体大小
const maxJSONBody = 1 << 20

// APIHandler 处理所有API请求
type APIHandler struct {
	cfg       *config.Config
	auth      *auth.Service
	catalog   *catalog.Service
	playlists *playlist.Service
	store     storage.AudioStore
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	cfg *config.Config,
	authService *auth.Service,
	catalogService *catalog.Service,
	playlistService *playlist.Service,
	store storage.AudioStore,
) *APIHandler {
	return &APIHandler{
		cfg:       cfg,
		auth:      authService,
		catalog:   catalogService,
		playlists: playlistService,
		store:     store,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("[HTTP] 写入响应失败", logger.ErrorField(err))
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrIngestion):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, storage.ErrInvalidKey):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError 统一错误响应，500 只返回通用信息，细节写日志
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("[HTTP] 请求处理失败",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", apperr.ErrValidation, err)
	}
	return nil
}

// pathInt64 parses a numeric path variable.
func pathInt64(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", apperr.ErrValidation, name, raw)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", apperr.ErrValidation, name, raw)
	}
	return v, nil
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

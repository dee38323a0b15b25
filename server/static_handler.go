package server

import (
	"io"
	"net/http"
	"time"

	"TuneBox/logger"
	"TuneBox/storage"

	"github.com/gorilla/mux"
)

// StaticHandler 从音频存储中读取 mp3 文件
type StaticHandler struct {
	store storage.AudioStore
}

// NewStaticHandler 创建 StaticHandler 实例
func NewStaticHandler(store storage.AudioStore) *StaticHandler {
	return &StaticHandler{store: store}
}

// ServeHTTP 实现 http.Handler 接口; the file name comes from the {file} route variable.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["file"]

	object, err := h.store.Open(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	// key 是 uuid，内容不会变化
	w.Header().Set("Cache-Control", "public, max-age=31536000")

	// 本地文件和 MinIO 对象都可 Seek，支持 Range 请求
	if rs, ok := object.(io.ReadSeeker); ok {
		http.ServeContent(w, r, key, time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, object); err != nil {
		logger.Warn("[Static] 发送音频失败", logger.String("key", key), logger.ErrorField(err))
	}
}

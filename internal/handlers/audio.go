package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"mail-podcaster/internal/storage"
)

func (h *Handlers) ServeAudioFile(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	stream, err := h.store.GetAudioStream(r.Context(), filename)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Audio file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to open audio", zap.String("filename", filename), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer stream.Body.Close()

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	// Seekable bodies get range support.
	if rs, ok := stream.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, filename, time.Time{}, rs)
		return
	}

	if stream.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, stream.Body); err != nil {
		h.logger.Warn("audio stream interrupted", zap.String("filename", filename), zap.Error(err))
	}
}

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (h *Handlers) GetEpisode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	episode, ok, err := h.store.GetMetadata(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load episode", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "episode not found")
		return
	}
	writeJSON(w, http.StatusOK, episode)
}

package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"mail-podcaster/internal/migrate"
)

func (h *Handlers) MigrateURLs(w http.ResponseWriter, r *http.Request) {
	res, err := migrate.RewriteAudioURLs(r.Context(), h.store, h.publicURL, h.logger)
	if err != nil {
		h.logger.Error("audio url migration failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "migration failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

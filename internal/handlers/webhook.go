package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"mail-podcaster/internal/models"
	"mail-podcaster/internal/pipeline"
	"mail-podcaster/internal/provider"
	"mail-podcaster/pkg/tasks"
)

const maxWebhookBody = 10 << 20

// PostmarkWebhook accepts an inbound email. With a task queue configured the
// email is queued and 202 returned; otherwise it is processed before replying.
func (h *Handlers) PostmarkWebhook(w http.ResponseWriter, r *http.Request) {
	var payload models.PostmarkInbound
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	email, err := payload.ToEmail()
	if err != nil {
		h.logger.Info("rejected webhook payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.asynqClient != nil {
		h.enqueue(w, email)
		return
	}

	// The provider may give up on us mid-pipeline; finish the episode anyway.
	ctx := context.WithoutCancel(r.Context())
	episode, err := h.processor.Process(ctx, email)
	if err != nil {
		h.logger.Error("failed to process email", zap.String("from", email.From), zap.Error(err))
		status, msg := classifyProcessError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "processed",
		"episodeId": episode.ID,
		"title":     episode.Title,
		"audioUrl":  episode.AudioURL,
		"feedUrl":   pipeline.FeedURL(h.publicURL, email.From),
	})
}

func (h *Handlers) enqueue(w http.ResponseWriter, email models.InboundEmail) {
	task, err := tasks.NewProcessEmailTask(email)
	if err != nil {
		h.logger.Error("failed to create process email task", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		h.logger.Error("failed to enqueue process email task", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "failed to queue email")
		return
	}
	h.logger.Info("queued email", zap.String("taskID", info.ID), zap.String("from", email.From))
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "queued",
		"taskId": info.ID,
	})
}

func classifyProcessError(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrAuthentication):
		return http.StatusBadGateway, "upstream provider rejected credentials"
	case errors.Is(err, provider.ErrQuotaExceeded):
		return http.StatusBadGateway, "upstream provider quota exceeded"
	case errors.Is(err, pipeline.ErrEmptyContent):
		return http.StatusUnprocessableEntity, "email has no usable content"
	case provider.IsTransient(err) || isRetryExhausted(err):
		return http.StatusServiceUnavailable, "upstream provider unavailable, try again later"
	}
	return http.StatusInternalServerError, "failed to process email"
}

func isRetryExhausted(err error) bool {
	var retryErr *provider.RetryError
	return errors.As(err, &retryErr)
}

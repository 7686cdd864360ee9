package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestWebhookAuth(t *testing.T) {
	handler := WebhookAuth("secret", zap.NewNop())(okHandler)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/postmark", nil)
		req.Header.Set(WebhookTokenHeader, "secret")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/postmark", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/postmark", nil)
		req.Header.Set(WebhookTokenHeader, "guess")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestWebhookAuth_Disabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook/postmark", nil)
	rr := httptest.NewRecorder()
	WebhookAuth("", zap.NewNop())(okHandler).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestQueryKeyAuth(t *testing.T) {
	handler := QueryKeyAuth("migrate-key", zap.NewNop())(okHandler)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/migrate?key=migrate-key", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/migrate?key=nope", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	QueryKeyAuth("", zap.NewNop())(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/migrate?key=", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

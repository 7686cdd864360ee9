package middleware

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
)

// WebhookTokenHeader carries the shared secret on inbound webhook deliveries.
const WebhookTokenHeader = "X-Postmark-Webhook-Token"

// WebhookAuth rejects requests whose token header does not match token.
// An empty token disables the check.
func WebhookAuth(token string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(WebhookTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.Warn("rejected webhook with invalid token", zap.String("remote", ClientIP(r)))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// QueryKeyAuth guards administrative endpoints with a ?key= secret. An
// empty key rejects every request.
func QueryKeyAuth(key string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.URL.Query().Get("key")
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				logger.Warn("rejected admin request", zap.String("path", r.URL.Path), zap.String("remote", ClientIP(r)))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package provider holds the error kinds shared by the upstream text and
// speech clients, and the retry loop both of them use.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthentication means the provider rejected our credential. Never retried.
	ErrAuthentication = errors.New("provider authentication failed")
	// ErrQuotaExceeded means the provider account has no credits left. Never retried.
	ErrQuotaExceeded = errors.New("provider quota exceeded")
)

// StatusError is a non-success response from an upstream provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, strings.TrimSpace(e.Body))
}

// Transient reports whether the failure is expected to clear after a short wait.
func (e *StatusError) Transient() bool {
	return e.Throttled() || looksOverloaded(e.Body)
}

// Throttled reports a rate limit or temporary unavailability status.
func (e *StatusError) Throttled() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// RetryError is returned once every attempt has failed.
type RetryError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// IsTransient classifies err for the retry loop.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrQuotaExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return looksOverloaded(err.Error())
}

// IsThrottled is the status-only classifier: only 429 and 503 responses
// are retried, whatever their message says.
func IsThrottled(err error) bool {
	if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrQuotaExceeded) {
		return false
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Throttled()
}

func looksOverloaded(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "overloaded") || (strings.Contains(msg, "unavailable") && strings.Contains(msg, "temporar"))
}

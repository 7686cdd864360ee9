// Package tts renders scripts to MP3 audio through the ElevenLabs API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"mail-podcaster/internal/metrics"
	"mail-podcaster/internal/provider"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultModelID      = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
	defaultStability    = 0.5
	defaultSimilarity   = 0.75
	defaultTimeout      = 5 * time.Minute
	// SafeCharBudget is the script length above which the provider starts rejecting or truncating requests.
	SafeCharBudget = 5000

	defaultAttempts = 3
	defaultStep     = 3 * time.Second
)

// Config holds configuration for the ElevenLabs synthesizer.
// Only APIKey is required; everything else has a default.
type Config struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	// Stability and SimilarityBoost are nil when unset; zero is a valid value.
	Stability       *float64
	SimilarityBoost *float64
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// ElevenLabs implements speech synthesis against the ElevenLabs REST API.
type ElevenLabs struct {
	cfg        Config
	settings   voiceSettings
	httpClient *http.Client
	logger     *zap.Logger
	policy     provider.Policy
}

// Option customizes the synthesizer.
type Option func(*ElevenLabs)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *ElevenLabs) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleep provider.Sleeper) Option {
	return func(e *ElevenLabs) {
		e.policy.Sleep = sleep
	}
}

// NewElevenLabs validates cfg and applies defaults.
func NewElevenLabs(cfg Config, logger *zap.Logger, opts ...Option) (*ElevenLabs, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ELEVENLABS_API_KEY must be set")
	}
	settings := voiceSettings{Stability: defaultStability, SimilarityBoost: defaultSimilarity}
	if cfg.Stability != nil {
		settings.Stability = *cfg.Stability
	}
	if cfg.SimilarityBoost != nil {
		settings.SimilarityBoost = *cfg.SimilarityBoost
	}
	if settings.Stability < 0 || settings.Stability > 1 {
		return nil, fmt.Errorf("stability must be between 0 and 1, got %f", settings.Stability)
	}
	if settings.SimilarityBoost < 0 || settings.SimilarityBoost > 1 {
		return nil, fmt.Errorf("similarity boost must be between 0 and 1, got %f", settings.SimilarityBoost)
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoiceID
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}

	e := &ElevenLabs{
		cfg:        cfg,
		settings:   settings,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		policy: provider.Policy{
			Attempts:  defaultAttempts,
			Step:      defaultStep,
			Sleep:     provider.SleepContext,
			Retryable: provider.IsThrottled,
			OnRetry: func(int, time.Duration, error) {
				metrics.IncrementProviderRetry("speech")
			},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Synthesize renders text to MP3 bytes. Oversized scripts are sent as-is and
// only logged; the provider decides whether to reject them.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("synthesize: text cannot be empty")
	}
	if n := len([]rune(text)); n > SafeCharBudget {
		e.logger.Warn("script exceeds safe character budget",
			zap.Int("chars", n),
			zap.Int("budget", SafeCharBudget))
	}

	return provider.Do(ctx, "synthesize speech", e.policy, e.logger, func(ctx context.Context) ([]byte, error) {
		return e.synthesizeOnce(ctx, text)
	})
}

// EstimateDuration approximates the length in seconds of size bytes of audio
// in the configured output format.
func (e *ElevenLabs) EstimateDuration(size int64) int {
	return EstimateDuration(size, e.cfg.OutputFormat)
}

func (e *ElevenLabs) synthesizeOnce(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(synthesisRequest{
		Text:          text,
		ModelID:       e.cfg.ModelID,
		VoiceSettings: e.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", e.cfg.APIBaseURL, e.cfg.VoiceID, e.cfg.OutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	e.logger.Debug("Sending request to Eleven Labs API", zap.String("voiceID", e.cfg.VoiceID), zap.Int("chars", len(text)))
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, classifyResponse(resp.StatusCode, body)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("eleven labs returned an empty audio body")
	}
	e.logger.Info("Received audio from Eleven Labs API", zap.Int("bytes", len(audio)))
	return audio, nil
}

type errorDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func classifyResponse(status int, body []byte) error {
	statusErr := &provider.StatusError{Provider: "elevenlabs", StatusCode: status, Body: string(body)}
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", provider.ErrAuthentication, statusErr)
	case http.StatusUnprocessableEntity:
		if isQuotaExhausted(body) {
			return fmt.Errorf("%w: %v", provider.ErrQuotaExceeded, statusErr)
		}
	}
	return statusErr
}

// isQuotaExhausted recognizes {"detail":{"status":"quota_exceeded",...}}.
func isQuotaExhausted(body []byte) bool {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return false
	}
	var detail errorDetail
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		return false
	}
	if detail.Status == "quota_exceeded" {
		return true
	}
	msg := strings.ToLower(detail.Message)
	return strings.Contains(msg, "credits remaining") || strings.Contains(msg, "exceeds your quota")
}

package script

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
	"mail-podcaster/internal/provider"
)

const (
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 2048
)

// GeminiConfig configures the Gemini text model.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// GeminiModel implements TextModel using Google's Gemini API.
type GeminiModel struct {
	client    *genai.Client
	logger    *zap.Logger
	model     string
	maxTokens int
}

// NewGeminiModel creates the client once; the returned model is safe to share.
func NewGeminiModel(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY must be set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiModel{client: client, logger: logger, model: model, maxTokens: maxTokens}, nil
}

// Complete sends one generation request.
func (g *GeminiModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		MaxOutputTokens:   int32(g.maxTokens),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini: empty response")
	}
	return sb.String(), nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini: %w", err)
	}
	statusErr := &provider.StatusError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", provider.ErrAuthentication, statusErr)
	}
	return statusErr
}

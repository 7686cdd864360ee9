// Package script turns extracted article text into a titled spoken-word
// script using a generative text model.
package script

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"mail-podcaster/internal/metrics"
	"mail-podcaster/internal/provider"
)

const (
	defaultAttempts = 3
	defaultStep     = 2 * time.Second
)

// TextModel is a single-shot completion against a generative text model.
type TextModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Script is the parsed model output.
type Script struct {
	Title string
	Body  string
}

// Generator produces scripts with retry on transient provider failures.
type Generator struct {
	model  TextModel
	logger *zap.Logger
	policy provider.Policy
}

// Option customizes the generator.
type Option func(*Generator)

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleep provider.Sleeper) Option {
	return func(g *Generator) {
		g.policy.Sleep = sleep
	}
}

// NewGenerator builds a Generator around model.
func NewGenerator(model TextModel, logger *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		model:  model,
		logger: logger,
		policy: provider.Policy{
			Attempts:  defaultAttempts,
			Step:      defaultStep,
			Sleep:     provider.SleepContext,
			Retryable: provider.IsTransient,
			OnRetry: func(int, time.Duration, error) {
				metrics.IncrementProviderRetry("text")
			},
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate asks the model for a script about content. subjectHint is used
// as the title when the response cannot be parsed.
func (g *Generator) Generate(ctx context.Context, content, subjectHint string) (Script, error) {
	if strings.TrimSpace(content) == "" {
		return Script{}, errors.New("generate script: content is empty")
	}

	raw, err := provider.Do(ctx, "generate script", g.policy, g.logger, func(ctx context.Context) (string, error) {
		return g.model.Complete(ctx, SystemPrompt, userPrompt(content, subjectHint))
	})
	if err != nil {
		return Script{}, err
	}

	s := Parse(raw, subjectHint)
	g.logger.Info("script generated",
		zap.String("title", s.Title),
		zap.Int("chars", len(s.Body)))
	return s, nil
}

var (
	scriptPattern = regexp.MustCompile(`(?is)TITLE:[*\s]*(.*?)\s*(?:\n|\r)[*#\s]*SCRIPT:[*\s]*(.*)$`)
	fwdPrefix     = regexp.MustCompile(`(?i)^\s*(?:(?:fwd?|fw)\s*:\s*)+`)
)

// Parse splits a model response into title and script. When the markers are
// missing the whole response becomes the script and subjectHint the title.
func Parse(raw, subjectHint string) Script {
	raw = strings.TrimSpace(raw)
	if m := scriptPattern.FindStringSubmatch(raw); m != nil {
		title := strings.Trim(strings.TrimSpace(m[1]), `*"`)
		body := strings.TrimSpace(m[2])
		if body != "" {
			if title == "" {
				title = subjectHint
			}
			return Script{Title: CleanTitle(title), Body: body}
		}
	}
	return Script{Title: CleanTitle(subjectHint), Body: raw}
}

// CleanTitle strips any leading forward markers such as "Fwd:".
func CleanTitle(title string) string {
	return strings.TrimSpace(fwdPrefix.ReplaceAllString(title, ""))
}

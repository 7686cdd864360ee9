// Package extract turns an inbound email into the plain-text article that
// the script is written from. Newsletter teasers are followed to the full
// article when a usable link can be found.
package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"mail-podcaster/internal/models"
)

const (
	maxFetchAttempts = 3
	// minFetchedLength is the shortest fetched page accepted as the article.
	minFetchedLength = 200
	// minRenderedLength is the shortest rendered body worth keeping over the raw source.
	minRenderedLength = 50
)

// Fetcher retrieves the readable text of a web page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor implements the content extraction chain.
type Extractor struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// New builds an Extractor. A nil fetcher disables link following.
func New(fetcher Fetcher, logger *zap.Logger) *Extractor {
	return &Extractor{fetcher: fetcher, logger: logger}
}

// Extract returns the best available text for email. It never fails; every
// problem degrades to the email's own body.
func (e *Extractor) Extract(ctx context.Context, email models.InboundEmail) string {
	raw := email.HTMLBody
	if strings.TrimSpace(raw) == "" {
		raw = email.TextBody
	}
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	// Fetched pages are not email text; header stripping would eat lines
	// like "Date: March 3" from them.
	if fetched, ok := e.followLinks(ctx, raw); ok {
		return fetched
	}

	content := Render(raw)
	if len(content) < minRenderedLength {
		content = strings.TrimSpace(raw)
	}
	if stripped := StripHeaderArtifacts(content); stripped != "" {
		return stripped
	}
	return content
}

func (e *Extractor) followLinks(ctx context.Context, raw string) (string, bool) {
	if e.fetcher == nil {
		return "", false
	}
	candidates := Candidates(raw)
	if len(candidates) == 0 {
		return "", false
	}
	e.logger.Debug("found article candidates", zap.Strings("urls", candidates))

	if len(candidates) > maxFetchAttempts {
		candidates = candidates[:maxFetchAttempts]
	}
	for _, link := range candidates {
		text, err := e.fetcher.Fetch(ctx, link)
		if err != nil {
			e.logger.Warn("failed to fetch article candidate", zap.String("url", link), zap.Error(err))
			continue
		}
		text = strings.TrimSpace(text)
		if len(text) <= minFetchedLength {
			e.logger.Debug("fetched article too short", zap.String("url", link), zap.Int("length", len(text)))
			continue
		}
		if LooksBinary(text) {
			e.logger.Debug("fetched article looks like binary data", zap.String("url", link))
			continue
		}
		e.logger.Info("using fetched article content", zap.String("url", link), zap.Int("length", len(text)))
		return text, true
	}
	return "", false
}

var binarySignatures = []string{
	"\x89PNG",
	"GIF87a",
	"GIF89a",
	"\xFF\xD8\xFF",
	"JFIF",
	"Exif",
	"WEBP",
	"%PDF-",
	"ID3",
	"PK\x03\x04",
}

// LooksBinary reports whether text contains a known binary file signature
// near its start, as happens when an image is decoded as a page.
func LooksBinary(text string) bool {
	head := text
	for i := range text {
		if i >= 64 {
			head = text[:i]
			break
		}
	}
	for _, sig := range binarySignatures {
		if strings.Contains(head, sig) {
			return true
		}
	}
	return strings.ContainsRune(head, '\uFFFD') || strings.ContainsRune(head, 0)
}

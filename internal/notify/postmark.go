// Package notify replies to the sender once their episode is published.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"mail-podcaster/internal/models"
)

const defaultPostmarkURL = "https://api.postmarkapp.com/email"

// Config holds configuration for the Postmark reply sender.
type Config struct {
	ServerToken string
	FromAddress string
	APIURL      string
}

// Postmark sends episode-ready replies through the Postmark email API.
type Postmark struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

type postmarkMessage struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	ReplyTo       string `json:"ReplyTo,omitempty"`
	MessageStream string `json:"MessageStream"`
}

// Notifier is satisfied by Postmark and Noop.
type Notifier interface {
	EpisodeReady(ctx context.Context, email models.InboundEmail, episode *models.Episode, feedURL string) error
}

// Noop drops every notification.
type Noop struct{}

// EpisodeReady implements Notifier.
func (Noop) EpisodeReady(context.Context, models.InboundEmail, *models.Episode, string) error {
	return nil
}

// New returns a Postmark notifier, or Noop when no server token is set.
func New(cfg Config, logger *zap.Logger) Notifier {
	if strings.TrimSpace(cfg.ServerToken) == "" {
		logger.Info("POSTMARK_SERVER_TOKEN not set, email replies disabled")
		return Noop{}
	}
	return NewPostmark(cfg, logger, &http.Client{Timeout: 15 * time.Second})
}

// NewPostmark builds a Postmark notifier.
func NewPostmark(cfg Config, logger *zap.Logger, client *http.Client) *Postmark {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultPostmarkURL
	}
	return &Postmark{cfg: cfg, httpClient: client, logger: logger}
}

// EpisodeReady replies to the original sender with the episode and feed links.
func (p *Postmark) EpisodeReady(ctx context.Context, email models.InboundEmail, episode *models.Episode, feedURL string) error {
	from := p.cfg.FromAddress
	if from == "" {
		from = email.To
	}
	msg := postmarkMessage{
		From:          from,
		To:            email.From,
		Subject:       "Your podcast is ready: " + episode.Title,
		TextBody:      textBody(episode, feedURL),
		HtmlBody:      htmlBody(episode, feedURL),
		ReplyTo:       from,
		MessageStream: "outbound",
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.cfg.ServerToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("postmark: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	p.logger.Info("sent episode reply", zap.String("to", email.From), zap.String("episodeID", episode.ID))
	return nil
}

func textBody(ep *models.Episode, feedURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your email has been turned into a podcast episode: %s\n\n", ep.Title)
	fmt.Fprintf(&sb, "Listen: %s\n", ep.AudioURL)
	fmt.Fprintf(&sb, "Subscribe to your personal feed: %s\n", feedURL)
	return sb.String()
}

func htmlBody(ep *models.Episode, feedURL string) string {
	title := html.EscapeString(ep.Title)
	audio := html.EscapeString(ep.AudioURL)
	feed := html.EscapeString(feedURL)
	return "<p>Your email has been turned into a podcast episode: <strong>" + title + "</strong></p>" +
		`<p><a href="` + audio + `">Listen to the episode</a></p>` +
		`<p>Subscribe to your personal feed: <a href="` + feed + `">` + feed + "</a></p>"
}

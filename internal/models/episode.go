package models

import "time"

// Episode is one persisted audio artifact plus its metadata, produced from one processed email.
type Episode struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Content     string          `json:"content"`
	AudioFile   string          `json:"audioFile"`
	AudioURL    string          `json:"audioUrl"`
	Size        int64           `json:"size"`
	Date        time.Time       `json:"date"`
	Duration    int             `json:"duration"`
	Author      string          `json:"author"`
	Email       EmailProvenance `json:"email"`
}

// EmailProvenance keeps the addressing fields of the email an episode was built from.
type EmailProvenance struct {
	From      string `json:"from"`
	To        string `json:"to"`
	MessageID string `json:"messageId"`
}

// EpisodeSummary is the subset of an Episode returned by storage listings.
type EpisodeSummary struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	AudioURL    string          `json:"audioUrl"`
	Size        int64           `json:"size"`
	Duration    int             `json:"duration"`
	Author      string          `json:"author"`
	Email       EmailProvenance `json:"email"`
}

// Summary returns the listing view of the episode.
func (e Episode) Summary() EpisodeSummary {
	return EpisodeSummary{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		AudioURL:    e.AudioURL,
		Size:        e.Size,
		Duration:    e.Duration,
		Author:      e.Author,
		Email:       e.Email,
	}
}

// Sender returns the address used for feed identity. Older records may only carry email.from.
func (s EpisodeSummary) Sender() string {
	if s.Email.From != "" {
		return s.Email.From
	}
	return s.Author
}

package feed

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
	"mail-podcaster/internal/models"
)

// Channel holds the channel-level fields of a generated feed.
type Channel struct {
	Title       string
	Description string
	Author      string
	Email       string
	ImageURL    string
	// MaxItems caps the number of items; zero means no cap.
	MaxItems int
}

// BaseURL returns the configured public URL, or one derived from the request.
func BaseURL(publicURL string, r *http.Request) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/")
	}

	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "https"
		if r.Header.Get("X-Forwarded-Proto") != "" {
			scheme = r.Header.Get("X-Forwarded-Proto")
		}
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// SortNewestFirst orders episodes by date, newest first.
func SortNewestFirst(episodes []models.EpisodeSummary) {
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Date.After(episodes[j].Date)
	})
}

// FilterByFeedID keeps the episodes whose sender hashes to feedID.
func FilterByFeedID(episodes []models.EpisodeSummary, feedID string) []models.EpisodeSummary {
	var out []models.EpisodeSummary
	for _, ep := range episodes {
		sender := ep.Sender()
		if sender == "" {
			continue
		}
		if IDFor(sender) == feedID {
			out = append(out, ep)
		}
	}
	return out
}

// GenerateRSS renders the episodes as an RSS document with iTunes extensions.
// feedURL is the self link of the document; episodes are sorted in place.
func GenerateRSS(ch Channel, baseURL, feedURL string, episodes []models.EpisodeSummary, now time.Time) (string, error) {
	SortNewestFirst(episodes)
	if ch.MaxItems > 0 && len(episodes) > ch.MaxItems {
		episodes = episodes[:ch.MaxItems]
	}

	p := podcast.New(ch.Title, baseURL, ch.Description, &now, &now)
	p.Language = "en"
	p.TTL = 60
	p.Copyright = fmt.Sprintf("%d %s", now.Year(), ch.Author)
	p.AddAtomLink(feedURL)
	p.AddAuthor(ch.Author, ch.Email)
	p.IOwner = &podcast.Author{Name: ch.Author, Email: ch.Email}
	p.AddSummary(ch.Description)
	p.AddCategory("Technology", nil)
	if ch.ImageURL != "" {
		p.AddImage(ch.ImageURL)
	}

	for _, episode := range episodes {
		date := episode.Date
		title := episode.Title
		if title == "" {
			title = "Untitled episode"
		}
		description := episode.Description
		if description == "" {
			description = title
		}
		item := podcast.Item{
			GUID:        episode.ID,
			Title:       title,
			Description: description,
			Link:        fmt.Sprintf("%s/episodes/%s", baseURL, episode.ID),
			PubDate:     &date,
		}
		item.AddEnclosure(episode.AudioURL, podcast.MP3, episode.Size)
		item.AddDuration(int64(episode.Duration))
		if _, err := p.AddItem(item); err != nil {
			return "", fmt.Errorf("add item %s: %w", episode.ID, err)
		}
	}

	return p.String(), nil
}

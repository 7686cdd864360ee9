package handlers

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/models"
)

var feedIDPattern = regexp.MustCompile(fmt.Sprintf(`^[0-9a-f]{%d}$`, feed.IDLength))

func (h *Handlers) GetGlobalFeed(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.store.ListEpisodes(r.Context())
	if err != nil {
		h.logger.Error("failed to list episodes", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	base := feed.BaseURL(h.publicURL, r)
	h.writeFeed(w, h.channel, base, base+r.URL.Path, episodes)
}

func (h *Handlers) GetPersonalFeed(w http.ResponseWriter, r *http.Request) {
	feedID := mux.Vars(r)["feedId"]
	if !feedIDPattern.MatchString(feedID) {
		http.Error(w, "Feed not found", http.StatusNotFound)
		return
	}

	episodes, err := h.store.ListEpisodes(r.Context())
	if err != nil {
		h.logger.Error("failed to list episodes", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	episodes = feed.FilterByFeedID(episodes, feedID)

	ch := h.channel
	if sender := h.feedOwner(r, feedID, episodes); sender != "" {
		ch.Title = fmt.Sprintf("%s (%s)", h.channel.Title, sender)
	}

	base := feed.BaseURL(h.publicURL, r)
	h.writeFeed(w, ch, base, base+r.URL.Path, episodes)
}

// feedOwner names the sender of a personal feed, preferring the registry.
func (h *Handlers) feedOwner(r *http.Request, feedID string, episodes []models.EpisodeSummary) string {
	if h.feeds != nil {
		f, ok, err := h.feeds.Lookup(r.Context(), feedID)
		if err != nil {
			h.logger.Warn("feed registry lookup failed", zap.String("feedID", feedID), zap.Error(err))
		} else if ok {
			return f.Sender
		}
	}
	if len(episodes) > 0 {
		return episodes[0].Sender()
	}
	return ""
}

func (h *Handlers) writeFeed(w http.ResponseWriter, ch feed.Channel, base, feedURL string, episodes []models.EpisodeSummary) {
	rss, err := feed.GenerateRSS(ch, base, feedURL, episodes, h.now())
	if err != nil {
		h.logger.Error("failed to generate RSS", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(rss))
}

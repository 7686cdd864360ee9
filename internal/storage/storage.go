// Package storage persists episode audio and metadata. Two backends share
// one contract: a local directory tree and an S3-compatible object store
// (Cloudflare R2 or AWS S3).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"mail-podcaster/internal/models"
)

const (
	audioPrefix    = "podcasts"
	metadataPrefix = "metadata"
	// AudioContentType is the MIME type of every stored episode.
	AudioContentType = "audio/mpeg"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// AudioObject describes a stored audio blob.
type AudioObject struct {
	Filename string
	URL      string
	Size     int64
}

// AudioStream is an open audio object. Callers must close Body.
type AudioStream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Adapter is implemented by every storage backend.
type Adapter interface {
	// SaveAudio stores data under filename and returns its public URL.
	SaveAudio(ctx context.Context, filename string, data []byte) (AudioObject, error)
	SaveMetadata(ctx context.Context, episodeID string, episode models.Episode) error
	// GetMetadata reports ok=false when the episode does not exist.
	GetMetadata(ctx context.Context, episodeID string) (episode models.Episode, ok bool, err error)
	// ListEpisodes returns every stored episode in backend order.
	ListEpisodes(ctx context.Context) ([]models.EpisodeSummary, error)
	// GetAudioStream returns ErrNotFound for unknown filenames.
	GetAudioStream(ctx context.Context, filename string) (*AudioStream, error)
	// DeleteEpisode removes the metadata and the audio it references.
	DeleteEpisode(ctx context.Context, episodeID string) error
	Close() error
}

// AudioURL is the public URL an audio file is served from.
func AudioURL(publicURL, filename string) string {
	return strings.TrimRight(publicURL, "/") + "/" + audioPrefix + "/" + filename
}

// AudioKey resolves the audio filename of a stored episode, preferring the
// recorded filename over the last segment of its URL.
func AudioKey(ep models.Episode) string {
	if ep.AudioFile != "" {
		return ep.AudioFile
	}
	if ep.AudioURL == "" {
		return ""
	}
	return path.Base(strings.SplitN(ep.AudioURL, "?", 2)[0])
}

// checkName rejects names that could escape their prefix.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}

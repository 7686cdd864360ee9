package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"mail-podcaster/internal/models"
)

// Local stores episodes under <baseDir>/podcasts and <baseDir>/metadata.
type Local struct {
	baseDir   string
	publicURL string
	logger    *zap.Logger
}

// NewLocal returns a filesystem adapter rooted at baseDir.
func NewLocal(baseDir, publicURL string, logger *zap.Logger) *Local {
	return &Local{baseDir: baseDir, publicURL: publicURL, logger: logger}
}

func (l *Local) audioPath(filename string) string {
	return filepath.Join(l.baseDir, audioPrefix, filename)
}

func (l *Local) metadataPath(episodeID string) string {
	return filepath.Join(l.baseDir, metadataPrefix, episodeID+".json")
}

// SaveAudio implements Adapter.
func (l *Local) SaveAudio(ctx context.Context, filename string, data []byte) (AudioObject, error) {
	if err := checkName(filename); err != nil {
		return AudioObject{}, err
	}
	if err := writeFileAtomic(l.audioPath(filename), data); err != nil {
		return AudioObject{}, fmt.Errorf("failed to save audio %s: %w", filename, err)
	}
	l.logger.Info("saved audio", zap.String("filename", filename), zap.Int("size", len(data)))
	return AudioObject{
		Filename: filename,
		URL:      AudioURL(l.publicURL, filename),
		Size:     int64(len(data)),
	}, nil
}

// SaveMetadata implements Adapter.
func (l *Local) SaveMetadata(ctx context.Context, episodeID string, episode models.Episode) error {
	if err := checkName(episodeID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(episode, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := writeFileAtomic(l.metadataPath(episodeID), data); err != nil {
		return fmt.Errorf("failed to save metadata %s: %w", episodeID, err)
	}
	return nil
}

// GetMetadata implements Adapter.
func (l *Local) GetMetadata(ctx context.Context, episodeID string) (models.Episode, bool, error) {
	if checkName(episodeID) != nil {
		return models.Episode{}, false, nil
	}
	data, err := os.ReadFile(l.metadataPath(episodeID))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Episode{}, false, nil
	}
	if err != nil {
		return models.Episode{}, false, fmt.Errorf("failed to read metadata %s: %w", episodeID, err)
	}
	var ep models.Episode
	if err := json.Unmarshal(data, &ep); err != nil {
		return models.Episode{}, false, fmt.Errorf("failed to decode metadata %s: %w", episodeID, err)
	}
	return ep, true, nil
}

// ListEpisodes implements Adapter. Unreadable metadata files are skipped.
func (l *Local) ListEpisodes(ctx context.Context) ([]models.EpisodeSummary, error) {
	entries, err := os.ReadDir(filepath.Join(l.baseDir, metadataPrefix))
	if errors.Is(err, fs.ErrNotExist) {
		return []models.EpisodeSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	episodes := make([]models.EpisodeSummary, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ep, ok, err := l.GetMetadata(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			l.logger.Warn("skipping unreadable metadata", zap.String("file", name), zap.Error(err))
			continue
		}
		if ok {
			episodes = append(episodes, ep.Summary())
		}
	}
	return episodes, nil
}

// GetAudioStream implements Adapter.
func (l *Local) GetAudioStream(ctx context.Context, filename string) (*AudioStream, error) {
	if checkName(filename) != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(l.audioPath(filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audio %s: %w", filename, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat audio %s: %w", filename, err)
	}
	return &AudioStream{Body: f, ContentType: AudioContentType, ContentLength: info.Size()}, nil
}

// DeleteEpisode implements Adapter.
func (l *Local) DeleteEpisode(ctx context.Context, episodeID string) error {
	ep, ok, err := l.GetMetadata(ctx, episodeID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := os.Remove(l.metadataPath(episodeID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete metadata %s: %w", episodeID, err)
	}
	if key := AudioKey(ep); checkName(key) == nil {
		if err := os.Remove(l.audioPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete audio %s: %w", key, err)
		}
	}
	l.logger.Info("deleted episode", zap.String("id", episodeID))
	return nil
}

// Close implements Adapter.
func (l *Local) Close() error { return nil }

// writeFileAtomic writes through a temp file in the target directory so
// readers never observe a partial object.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

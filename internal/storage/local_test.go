package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalAdapter(t *testing.T) {
	runAdapterContract(t, func(t *testing.T) Adapter {
		return NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop())
	})
}

func TestLocal_Layout(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir, "https://pod.example.com", zap.NewNop())
	ctx := context.Background()

	audio, err := l.SaveAudio(ctx, "podcast-1.mp3", []byte("ID3"))
	require.NoError(t, err)
	require.NoError(t, l.SaveMetadata(ctx, "1", sampleEpisode("1", audio)))

	assert.FileExists(t, filepath.Join(dir, "podcasts", "podcast-1.mp3"))
	assert.FileExists(t, filepath.Join(dir, "metadata", "1.json"))
}

func TestLocal_ListSkipsCorruptAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir, "https://pod.example.com", zap.NewNop())
	ctx := context.Background()

	require.NoError(t, l.SaveMetadata(ctx, "good", sampleEpisode("good", AudioObject{Filename: "g.mp3"})))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata", "bad.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata", "notes.txt"), []byte("hi"), 0o644))

	episodes, err := l.ListEpisodes(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "good", episodes[0].ID)
}

func TestLocal_ListEmptyStore(t *testing.T) {
	l := NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop())
	episodes, err := l.ListEpisodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"mail-podcaster/internal/config"
	"mail-podcaster/internal/storage"
)

func TestOpenRegistry_DisabledWithoutDatabaseURL(t *testing.T) {
	registry, conn, err := OpenRegistry(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, registry)
	assert.Nil(t, conn)
}

func TestNewProcessor_RequiresProviderKeys(t *testing.T) {
	store := storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop())

	_, err := NewProcessor(context.Background(), &config.Config{}, store, nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY must be set")
	assert.Contains(t, err.Error(), "ELEVENLABS_API_KEY must be set")
}

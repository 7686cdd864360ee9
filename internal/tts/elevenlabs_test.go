package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"mail-podcaster/internal/provider"
)

func newTestSynth(t *testing.T, serverURL string, delays *[]time.Duration) *ElevenLabs {
	t.Helper()
	synth, err := NewElevenLabs(Config{APIKey: "test-key", APIBaseURL: serverURL}, zap.NewNop(),
		WithSleeper(func(_ context.Context, d time.Duration) error {
			if delays != nil {
				*delays = append(*delays, d)
			}
			return nil
		}))
	require.NoError(t, err)
	return synth
}

func TestNewElevenLabs_RequiresAPIKey(t *testing.T) {
	_, err := NewElevenLabs(Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewElevenLabs_RejectsOutOfRangeSettings(t *testing.T) {
	tooHigh := 1.5
	_, err := NewElevenLabs(Config{APIKey: "k", Stability: &tooHigh}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewElevenLabs_ZeroSettingsAreKept(t *testing.T) {
	zero := 0.0
	synth, err := NewElevenLabs(Config{APIKey: "k", Stability: &zero, SimilarityBoost: &zero}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, voiceSettings{Stability: 0, SimilarityBoost: 0}, synth.settings)
}

func TestSynthesize_SendsExpectedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/text-to-speech/"+defaultVoiceID, r.URL.Path)
		assert.Equal(t, DefaultOutputFormat, r.URL.Query().Get("output_format"))
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))

		var body synthesisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello listeners.", body.Text)
		assert.Equal(t, defaultModelID, body.ModelID)
		assert.Equal(t, defaultStability, body.VoiceSettings.Stability)
		assert.Equal(t, defaultSimilarity, body.VoiceSettings.SimilarityBoost)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3"))
	}))
	defer server.Close()

	audio, err := newTestSynth(t, server.URL, nil).Synthesize(context.Background(), "Hello listeners.")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3fake-mp3"), audio)
}

func TestSynthesize_RetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("mp3"))
	}))
	defer server.Close()

	var delays []time.Duration
	audio, err := newTestSynth(t, server.URL, &delays).Synthesize(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second}, delays)
}

func TestSynthesize_ExhaustsAttemptsOnServiceUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestSynth(t, server.URL, nil).Synthesize(context.Background(), "text")
	require.Error(t, err)

	var retryErr *provider.RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, 3, retryErr.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSynthesize_ServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":{"message":"system overloaded"}}`))
	}))
	defer server.Close()

	var delays []time.Duration
	_, err := newTestSynth(t, server.URL, &delays).Synthesize(context.Background(), "text")
	require.Error(t, err)

	var statusErr *provider.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, delays)
}

func TestSynthesize_UnauthorizedIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"invalid_api_key"}}`))
	}))
	defer server.Close()

	_, err := newTestSynth(t, server.URL, nil).Synthesize(context.Background(), "text")
	assert.ErrorIs(t, err, provider.ErrAuthentication)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSynthesize_QuotaExceeded(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":{"status":"quota_exceeded","message":"This request exceeds your quota. You have 12 credits remaining."}}`))
	}))
	defer server.Close()

	_, err := newTestSynth(t, server.URL, nil).Synthesize(context.Background(), "text")
	assert.ErrorIs(t, err, provider.ErrQuotaExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSynthesize_ValidationErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","text"],"msg":"field required"}]}`))
	}))
	defer server.Close()

	_, err := newTestSynth(t, server.URL, nil).Synthesize(context.Background(), "text")
	require.Error(t, err)
	assert.NotErrorIs(t, err, provider.ErrQuotaExceeded)

	var statusErr *provider.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
}

func TestSynthesize_LongScriptIsStillSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mp3"))
	}))
	defer server.Close()

	_, err := newTestSynth(t, server.URL, nil).Synthesize(context.Background(), strings.Repeat("a", SafeCharBudget+10))
	assert.NoError(t, err)
}

func TestSynthesize_EmptyText(t *testing.T) {
	synth := newTestSynth(t, "http://127.0.0.1:0", nil)
	_, err := synth.Synthesize(context.Background(), "  ")
	assert.Error(t, err)
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, 60, EstimateDuration(960000, "mp3_44100_128"))
	assert.Equal(t, 1, EstimateDuration(10, "mp3_44100_128"))
	assert.Equal(t, PlaceholderDuration, EstimateDuration(0, "mp3_44100_128"))
	assert.Equal(t, PlaceholderDuration, EstimateDuration(1000, "pcm_16000"))
}

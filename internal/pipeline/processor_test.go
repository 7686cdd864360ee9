package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"mail-podcaster/internal/extract"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/models"
	"mail-podcaster/internal/provider"
	"mail-podcaster/internal/script"
	"mail-podcaster/internal/storage"
)

type failingFetcher struct {
	mu    sync.Mutex
	calls []string
}

func (f *failingFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	return "", errors.New("connection refused")
}

type mockTextModel struct {
	response   string
	userPrompt string
}

func (m *mockTextModel) Complete(_ context.Context, _, userPrompt string) (string, error) {
	m.userPrompt = userPrompt
	return m.response, nil
}

type mockExtractor struct{ content string }

func (m *mockExtractor) Extract(context.Context, models.InboundEmail) string { return m.content }

type mockGenerator struct {
	script script.Script
	err    error
}

func (m *mockGenerator) Generate(context.Context, string, string) (script.Script, error) {
	return m.script, m.err
}

type mockSynthesizer struct {
	audio  []byte
	err    error
	called bool
}

func (m *mockSynthesizer) Synthesize(context.Context, string) ([]byte, error) {
	m.called = true
	return m.audio, m.err
}

type mockNotifier struct {
	err     error
	feedURL string
	episode *models.Episode
}

func (m *mockNotifier) EpisodeReady(_ context.Context, _ models.InboundEmail, ep *models.Episode, feedURL string) error {
	m.episode = ep
	m.feedURL = feedURL
	return m.err
}

type mockRegistry struct {
	feedID, sender string
}

func (m *mockRegistry) Register(_ context.Context, feedID, sender string) error {
	m.feedID, m.sender = feedID, sender
	return nil
}

// recordingStore wraps an adapter and records the order of writes.
type recordingStore struct {
	storage.Adapter
	ops             []string
	saveMetadataErr error
}

func (r *recordingStore) SaveAudio(ctx context.Context, filename string, data []byte) (storage.AudioObject, error) {
	r.ops = append(r.ops, "audio")
	return r.Adapter.SaveAudio(ctx, filename, data)
}

func (r *recordingStore) SaveMetadata(ctx context.Context, id string, ep models.Episode) error {
	r.ops = append(r.ops, "metadata")
	if r.saveMetadataErr != nil {
		return r.saveMetadataErr
	}
	return r.Adapter.SaveMetadata(ctx, id, ep)
}

func digestEmail() models.InboundEmail {
	return models.InboundEmail{
		From:      "Reader@Example.com",
		To:        "podcast@example.com",
		Subject:   "Weekly Digest",
		TextBody:  "Check out this <a href='https://ex.com/full'>continue reading</a> story.",
		Date:      "Tue, 02 Jan 2024 10:00:00 +0000",
		MessageID: "<digest-1@example.com>",
	}
}

func TestProcess_EndToEnd(t *testing.T) {
	ctx := context.Background()
	fetcher := &failingFetcher{}
	model := &mockTextModel{response: "TITLE: This Week in Review\nSCRIPT: Hello and welcome to this week's story."}
	store := storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop())
	notifier := &mockNotifier{}
	registry := &mockRegistry{}

	p := New(
		extract.New(fetcher, zap.NewNop()),
		script.NewGenerator(model, zap.NewNop()),
		&mockSynthesizer{audio: []byte("ID3-fake-audio")},
		store,
		"https://pod.example.com/",
		zap.NewNop(),
		WithNotifier(notifier),
		WithRegistry(registry),
	)

	ep, err := p.Process(ctx, digestEmail())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://ex.com/full"}, fetcher.calls)
	assert.Contains(t, model.userPrompt, "Check out this continue reading [https://ex.com/full] story.")

	assert.Equal(t, "This Week in Review", ep.Title)
	assert.Regexp(t, regexp.MustCompile(`^https://pod\.example\.com/podcasts/podcast-`+regexp.QuoteMeta(ep.ID)+`\.mp3$`), ep.AudioURL)
	assert.Equal(t, "podcast-"+ep.ID+".mp3", ep.AudioFile)
	assert.Equal(t, int64(len("ID3-fake-audio")), ep.Size)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), ep.Date.UTC())
	assert.Equal(t, "Email from Reader@Example.com received on Jan 2, 2024", ep.Description)
	assert.Equal(t, "Reader@Example.com", ep.Author)
	assert.Equal(t, "<digest-1@example.com>", ep.Email.MessageID)
	assert.Positive(t, ep.Duration)

	episodes, err := store.ListEpisodes(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, ep.ID, episodes[0].ID)
	assert.Equal(t, ep.AudioURL, episodes[0].AudioURL)

	assert.Equal(t, "https://pod.example.com/rss/feed/"+feed.IDFor("reader@example.com"), notifier.feedURL)
	assert.Equal(t, ep.ID, notifier.episode.ID)
	assert.Equal(t, feed.IDFor("reader@example.com"), registry.feedID)
	assert.Equal(t, "Reader@Example.com", registry.sender)
}

func TestProcess_AudioIsSavedBeforeMetadata(t *testing.T) {
	store := &recordingStore{Adapter: storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop())}
	p := New(
		&mockExtractor{content: "Some article text."},
		&mockGenerator{script: script.Script{Title: "T", Body: "B"}},
		&mockSynthesizer{audio: []byte("mp3")},
		store,
		"https://pod.example.com",
		zap.NewNop(),
		WithIDGenerator(func() string { return "fixed-id" }),
	)

	ep, err := p.Process(context.Background(), digestEmail())
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", ep.ID)
	assert.Equal(t, []string{"audio", "metadata"}, store.ops)
}

func TestProcess_MetadataFailureLeavesNothingListed(t *testing.T) {
	store := &recordingStore{
		Adapter:         storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop()),
		saveMetadataErr: errors.New("disk full"),
	}
	p := New(
		&mockExtractor{content: "Some article text."},
		&mockGenerator{script: script.Script{Title: "T", Body: "B"}},
		&mockSynthesizer{audio: []byte("mp3")},
		store,
		"https://pod.example.com",
		zap.NewNop(),
	)

	ep, err := p.Process(context.Background(), digestEmail())
	require.Error(t, err)
	assert.Nil(t, ep)

	var pipeErr *Error
	require.True(t, errors.As(err, &pipeErr))
	assert.Equal(t, StageSaveMetadata, pipeErr.Stage)

	episodes, err := store.ListEpisodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestProcess_ScriptFailureStopsPipeline(t *testing.T) {
	synth := &mockSynthesizer{audio: []byte("mp3")}
	store := &recordingStore{Adapter: storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop())}
	p := New(
		&mockExtractor{content: "Some article text."},
		&mockGenerator{err: fmt.Errorf("%w: gemini: http 401", provider.ErrAuthentication)},
		synth,
		store,
		"https://pod.example.com",
		zap.NewNop(),
	)

	_, err := p.Process(context.Background(), digestEmail())
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrAuthentication)

	var pipeErr *Error
	require.True(t, errors.As(err, &pipeErr))
	assert.Equal(t, StageScript, pipeErr.Stage)
	assert.False(t, synth.called)
	assert.Empty(t, store.ops)
}

func TestProcess_QuotaFailureIsDistinct(t *testing.T) {
	p := New(
		&mockExtractor{content: "Some article text."},
		&mockGenerator{script: script.Script{Title: "T", Body: "B"}},
		&mockSynthesizer{err: fmt.Errorf("%w: elevenlabs: http 422", provider.ErrQuotaExceeded)},
		storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop()),
		"https://pod.example.com",
		zap.NewNop(),
	)

	_, err := p.Process(context.Background(), digestEmail())
	assert.ErrorIs(t, err, provider.ErrQuotaExceeded)
	assert.NotErrorIs(t, err, provider.ErrAuthentication)
}

func TestProcess_EmptyContent(t *testing.T) {
	p := New(
		&mockExtractor{content: "   "},
		&mockGenerator{},
		&mockSynthesizer{},
		storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop()),
		"https://pod.example.com",
		zap.NewNop(),
	)

	_, err := p.Process(context.Background(), digestEmail())
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestProcess_NotificationFailureIsIgnored(t *testing.T) {
	p := New(
		&mockExtractor{content: "Some article text."},
		&mockGenerator{script: script.Script{Title: "T", Body: "B"}},
		&mockSynthesizer{audio: []byte("mp3")},
		storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop()),
		"https://pod.example.com",
		zap.NewNop(),
		WithNotifier(&mockNotifier{err: errors.New("postmark down")}),
	)

	ep, err := p.Process(context.Background(), digestEmail())
	require.NoError(t, err)
	assert.NotEmpty(t, ep.ID)
}

func TestProcess_FallbacksForTitleAndDate(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	email := digestEmail()
	email.Subject = "Fwd: FW: Big News"
	email.Date = "not a date"

	p := New(
		&mockExtractor{content: strings.Repeat("word ", 200)},
		&mockGenerator{script: script.Script{Body: "B"}},
		&mockSynthesizer{audio: []byte("mp3")},
		storage.NewLocal(t.TempDir(), "https://pod.example.com", zap.NewNop()),
		"https://pod.example.com",
		zap.NewNop(),
		WithClock(func() time.Time { return now }),
		WithDurationEstimator(func(int64) int { return 42 }),
	)

	ep, err := p.Process(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, "Big News", ep.Title)
	assert.Equal(t, now, ep.Date)
	assert.Equal(t, 42, ep.Duration)
	assert.True(t, strings.HasSuffix(ep.Content, "..."))
}

func TestContentPreview(t *testing.T) {
	assert.Equal(t, "Hello world", contentPreview("Hello\x07 world"))
	assert.Equal(t, "line one\nline two", contentPreview("line one\r\nline two"))

	long := strings.Repeat("a", previewLength+10)
	got := contentPreview(long)
	assert.Equal(t, strings.Repeat("a", previewLength)+"...", got)
}

func TestParseEmailDate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, want.Equal(parseEmailDate("Tue, 02 Jan 2024 10:00:00 +0000", now)))
	assert.True(t, want.Equal(parseEmailDate("2024-01-02T10:00:00Z", now)))
	assert.Equal(t, now, parseEmailDate("", now))
	assert.Equal(t, now, parseEmailDate("yesterday", now))
}

// Package pipeline turns one inbound email into one stored podcast episode.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/metrics"
	"mail-podcaster/internal/models"
	"mail-podcaster/internal/script"
	"mail-podcaster/internal/storage"
	"mail-podcaster/internal/tts"
)

// ContentExtractor produces the article text for an email. It never fails.
type ContentExtractor interface {
	Extract(ctx context.Context, email models.InboundEmail) string
}

// ScriptGenerator writes a titled script from article text.
type ScriptGenerator interface {
	Generate(ctx context.Context, content, subjectHint string) (script.Script, error)
}

// AudioSynthesizer renders a script to MP3 bytes.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Notifier tells the sender their episode is available.
type Notifier interface {
	EpisodeReady(ctx context.Context, email models.InboundEmail, episode *models.Episode, feedURL string) error
}

// FeedRegistry records which sender owns a feed id.
type FeedRegistry interface {
	Register(ctx context.Context, feedID, sender string) error
}

// Processor runs the email to episode pipeline. It holds no per-email state
// and is safe for concurrent use.
type Processor struct {
	extractor   ContentExtractor
	generator   ScriptGenerator
	synthesizer AudioSynthesizer
	store       storage.Adapter
	publicURL   string
	logger      *zap.Logger

	notifier Notifier
	registry FeedRegistry
	now      func() time.Time
	newID    func() string
	duration func(size int64) int
}

// Option customizes a Processor.
type Option func(*Processor)

// WithNotifier sends a reply once the episode is stored.
func WithNotifier(n Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithRegistry records feed ownership for every processed sender.
func WithRegistry(r FeedRegistry) Option {
	return func(p *Processor) { p.registry = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithIDGenerator overrides episode id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Processor) { p.newID = newID }
}

// WithDurationEstimator overrides how episode duration is derived from audio size.
func WithDurationEstimator(estimate func(size int64) int) Option {
	return func(p *Processor) { p.duration = estimate }
}

// New builds a Processor.
func New(
	extractor ContentExtractor,
	generator ScriptGenerator,
	synthesizer AudioSynthesizer,
	store storage.Adapter,
	publicURL string,
	logger *zap.Logger,
	opts ...Option,
) *Processor {
	p := &Processor{
		extractor:   extractor,
		generator:   generator,
		synthesizer: synthesizer,
		store:       store,
		publicURL:   strings.TrimRight(publicURL, "/"),
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		duration: func(size int64) int {
			return tts.EstimateDuration(size, tts.DefaultOutputFormat)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FeedURL is the personal feed address of sender.
func FeedURL(publicURL, sender string) string {
	return strings.TrimRight(publicURL, "/") + "/rss/feed/" + feed.IDFor(sender)
}

// Process runs every stage for email. Audio is stored before the metadata
// that references it, so a failed run never leaves a listed episode behind.
func (p *Processor) Process(ctx context.Context, email models.InboundEmail) (*models.Episode, error) {
	episode, err := p.process(ctx, email)
	if err != nil {
		metrics.IncrementEmailProcessed("failed")
		return nil, err
	}
	metrics.IncrementEmailProcessed("success")
	return episode, nil
}

func (p *Processor) process(ctx context.Context, email models.InboundEmail) (*models.Episode, error) {
	id := p.newID()
	logger := p.logger.With(zap.String("episodeID", id), zap.String("from", email.From))
	logger.Info("processing email", zap.String("subject", email.Subject))

	started := time.Now()
	content := p.extractor.Extract(ctx, email)
	metrics.RecordStage(StageExtract, started)
	if strings.TrimSpace(content) == "" {
		return nil, &Error{Stage: StageExtract, Err: ErrEmptyContent}
	}
	logger.Debug("extracted content", zap.Int("length", len(content)))

	started = time.Now()
	scr, err := p.generator.Generate(ctx, content, email.Subject)
	metrics.RecordStage(StageScript, started)
	if err != nil {
		logger.Error("script generation failed", zap.Error(err))
		return nil, &Error{Stage: StageScript, Err: err}
	}

	started = time.Now()
	audio, err := p.synthesizer.Synthesize(ctx, scr.Body)
	metrics.RecordStage(StageSynthesize, started)
	if err != nil {
		logger.Error("speech synthesis failed", zap.Error(err))
		return nil, &Error{Stage: StageSynthesize, Err: err}
	}

	started = time.Now()
	stored, err := p.store.SaveAudio(ctx, "podcast-"+id+".mp3", audio)
	metrics.RecordStage(StageSaveAudio, started)
	if err != nil {
		logger.Error("failed to save audio", zap.Error(err))
		return nil, &Error{Stage: StageSaveAudio, Err: err}
	}

	now := p.now()
	date := parseEmailDate(email.Date, now)
	title := strings.TrimSpace(scr.Title)
	if title == "" {
		title = script.CleanTitle(email.Subject)
	}

	episode := &models.Episode{
		ID:          id,
		Title:       title,
		Description: describe(email.From, date),
		Content:     contentPreview(content),
		AudioFile:   stored.Filename,
		AudioURL:    stored.URL,
		Size:        stored.Size,
		Date:        date,
		Duration:    p.duration(stored.Size),
		Author:      email.From,
		Email: models.EmailProvenance{
			From:      email.From,
			To:        email.To,
			MessageID: email.MessageID,
		},
	}

	started = time.Now()
	err = p.store.SaveMetadata(ctx, id, *episode)
	metrics.RecordStage(StageSaveMetadata, started)
	if err != nil {
		logger.Error("failed to save metadata", zap.Error(err))
		return nil, &Error{Stage: StageSaveMetadata, Err: err}
	}
	logger.Info("episode stored", zap.String("audioURL", episode.AudioURL), zap.Int64("size", episode.Size))

	p.afterStore(ctx, logger, email, episode)
	return episode, nil
}

// afterStore runs the best-effort follow-ups. Their failures are logged and
// never undo a stored episode.
func (p *Processor) afterStore(ctx context.Context, logger *zap.Logger, email models.InboundEmail, episode *models.Episode) {
	if p.registry != nil {
		if err := p.registry.Register(ctx, feed.IDFor(email.From), email.From); err != nil {
			logger.Warn("failed to register feed", zap.Error(err))
		}
	}
	if p.notifier != nil {
		if err := p.notifier.EpisodeReady(ctx, email, episode, FeedURL(p.publicURL, email.From)); err != nil {
			logger.Warn("failed to send notification", zap.Error(err))
		}
	}
}

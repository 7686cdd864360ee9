// Package config reads process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/notify"
	"mail-podcaster/internal/script"
	"mail-podcaster/internal/storage"
	"mail-podcaster/internal/tts"
)

const (
	defaultPort        = "8080"
	defaultStorageDir  = "storage"
	defaultRedisAddr   = "127.0.0.1:6379"
	defaultMaxEpisodes = 100
)

// RateLimit bounds webhook deliveries per client address.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

type Config struct {
	Port         string
	PublicURL    string
	RedisAddr    string
	DatabaseURL  string
	WebhookToken string
	MigrationKey string
	LogLevel     string
	// WorkerConcurrency is the number of emails the worker processes at once.
	WorkerConcurrency int

	Gemini     script.GeminiConfig
	ElevenLabs tts.Config
	Storage    storage.Config
	Feed       feed.Channel
	Postmark   notify.Config
	RateLimit  RateLimit

	// DotEnvLoaded reports whether a .env file was found.
	DotEnvLoaded bool
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	loaded := godotenv.Load() == nil

	cfg := &Config{
		Port:         getEnv("PORT", defaultPort),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		WebhookToken: os.Getenv("POSTMARK_WEBHOOK_TOKEN"),
		MigrationKey: os.Getenv("MIGRATION_KEY"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DotEnvLoaded: loaded,
		Gemini: script.GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
		},
		ElevenLabs: tts.Config{
			APIKey:       os.Getenv("ELEVENLABS_API_KEY"),
			APIBaseURL:   os.Getenv("ELEVENLABS_BASE_URL"),
			VoiceID:      os.Getenv("ELEVENLABS_VOICE_ID"),
			ModelID:      os.Getenv("ELEVENLABS_MODEL_ID"),
			OutputFormat: getEnv("ELEVENLABS_OUTPUT_FORMAT", tts.DefaultOutputFormat),
		},
		Storage: storage.Config{
			LocalDir:        getEnv("STORAGE_DIR", defaultStorageDir),
			AccountID:       os.Getenv("CF_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			Endpoint:        os.Getenv("R2_ENDPOINT"),
			Region:          os.Getenv("R2_REGION"),
		},
		Feed: feed.Channel{
			Title:       getEnv("RSS_TITLE", "Email to Podcast Feed"),
			Description: getEnv("RSS_DESCRIPTION", "Automated podcast feed from email content"),
			Author:      getEnv("RSS_AUTHOR", "Email to Podcast Bot"),
			Email:       getEnv("RSS_EMAIL", "podcast@example.com"),
			ImageURL:    os.Getenv("RSS_IMAGE_URL"),
		},
		Postmark: notify.Config{
			ServerToken: os.Getenv("POSTMARK_SERVER_TOKEN"),
			FromAddress: os.Getenv("POSTMARK_FROM_ADDRESS"),
		},
	}

	cfg.PublicURL = strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:"+cfg.Port), "/")
	cfg.Storage.PublicURL = cfg.PublicURL

	var err error
	if cfg.ElevenLabs.Stability, err = getOptionalFloat("ELEVENLABS_STABILITY"); err != nil {
		return nil, err
	}
	if cfg.ElevenLabs.SimilarityBoost, err = getOptionalFloat("ELEVENLABS_SIMILARITY_BOOST"); err != nil {
		return nil, err
	}
	if cfg.Gemini.MaxTokens, err = getInt("GEMINI_MAX_TOKENS", 0); err != nil {
		return nil, err
	}
	if cfg.Feed.MaxItems, err = getInt("MAX_EPISODES", defaultMaxEpisodes); err != nil {
		return nil, err
	}
	if cfg.Storage.ListConcurrency, err = getInt("STORAGE_LIST_CONCURRENCY", 0); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = getInt("WORKER_CONCURRENCY", 2); err != nil {
		return nil, err
	}
	if cfg.RateLimit.PerSecond, err = getFloat("WEBHOOK_RATE_LIMIT", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = getInt("WEBHOOK_RATE_BURST", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidatePipeline checks the settings only email processing needs, so
// storage-only tools can run without provider credentials.
func (c *Config) ValidatePipeline() error {
	var errs []error
	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY must be set"))
	}
	if c.ElevenLabs.APIKey == "" {
		errs = append(errs, errors.New("ELEVENLABS_API_KEY must be set"))
	}
	return errors.Join(errs...)
}

// WorkerRedisAddr is the address the worker and scheduler connect to.
func (c *Config) WorkerRedisAddr() string {
	if c.RedisAddr == "" {
		return defaultRedisAddr
	}
	return c.RedisAddr
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}

// getOptionalFloat returns nil when key is unset, so an explicit 0 is kept.
func getOptionalFloat(key string) (*float64, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return nil, nil
	}
	f, err := getFloat(key, 0)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

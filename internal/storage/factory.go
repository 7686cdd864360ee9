package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// Config selects and configures a backend.
type Config struct {
	PublicURL string
	LocalDir  string

	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	Region          string
	ListConcurrency int
}

// ObjectStoreConfigured reports whether every credential the object store
// needs is present.
func (c Config) ObjectStoreConfigured() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

func (c Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.AccountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	}
	return ""
}

func (c Config) region() string {
	if c.Region != "" {
		return c.Region
	}
	if c.AccountID != "" {
		return "auto"
	}
	return "us-east-1"
}

// Backend names the adapter New would build for c.
func (c Config) Backend() string {
	if c.ObjectStoreConfigured() {
		return "s3"
	}
	return "local"
}

// New builds the backend selected by cfg: the object store when its
// credentials are complete, the local filesystem otherwise.
func New(cfg Config, logger *zap.Logger) (Adapter, error) {
	if !cfg.ObjectStoreConfigured() {
		dir := cfg.LocalDir
		if dir == "" {
			dir = "storage"
		}
		logger.Info("using local storage", zap.String("dir", dir))
		return NewLocal(dir, cfg.PublicURL, logger), nil
	}

	client, err := NewS3Client(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("using object storage",
		zap.String("bucket", cfg.Bucket),
		zap.String("endpoint", cfg.endpoint()))
	return NewS3(client, cfg.Bucket, cfg.PublicURL, cfg.ListConcurrency, logger)
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"mail-podcaster/internal/models"
)

const defaultListConcurrency = 8

// S3 stores episodes in a bucket under the podcasts/ and metadata/ prefixes.
type S3 struct {
	client    s3iface.S3API
	bucket    string
	publicURL string
	pool      *ants.Pool
	logger    *zap.Logger
}

// NewS3 wraps client. Metadata reads during listing run on a pool of
// concurrency workers.
func NewS3(client s3iface.S3API, bucket, publicURL string, concurrency int, logger *zap.Logger) (*S3, error) {
	if concurrency <= 0 {
		concurrency = defaultListConcurrency
	}
	pool, err := ants.NewPool(concurrency, ants.WithPanicHandler(func(p interface{}) {
		logger.Error("panic in storage worker", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &S3{client: client, bucket: bucket, publicURL: publicURL, pool: pool, logger: logger}, nil
}

// NewS3Client builds an S3 API client for cfg. An account id without an
// explicit endpoint selects Cloudflare R2.
func NewS3Client(cfg Config) (s3iface.S3API, error) {
	awsCfg := &aws.Config{
		Region:      aws.String(cfg.region()),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	if endpoint := cfg.endpoint(); endpoint != "" {
		awsCfg.Endpoint = aws.String(endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return s3.New(sess), nil
}

func audioObjectKey(filename string) string {
	return audioPrefix + "/" + filename
}

func metadataObjectKey(episodeID string) string {
	return metadataPrefix + "/" + episodeID + ".json"
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// SaveAudio implements Adapter.
func (s *S3) SaveAudio(ctx context.Context, filename string, data []byte) (AudioObject, error) {
	if err := checkName(filename); err != nil {
		return AudioObject{}, err
	}
	key := audioObjectKey(filename)
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(AudioContentType),
	})
	if err != nil {
		s.logger.Error("failed to upload audio",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return AudioObject{}, fmt.Errorf("failed to upload audio %s: %w", filename, err)
	}
	s.logger.Info("uploaded audio", zap.String("key", key), zap.Int("size", len(data)))
	return AudioObject{
		Filename: filename,
		URL:      AudioURL(s.publicURL, filename),
		Size:     int64(len(data)),
	}, nil
}

// SaveMetadata implements Adapter.
func (s *S3) SaveMetadata(ctx context.Context, episodeID string, episode models.Episode) error {
	if err := checkName(episodeID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(episode, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(metadataObjectKey(episodeID)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save metadata %s: %w", episodeID, err)
	}
	return nil
}

// GetMetadata implements Adapter.
func (s *S3) GetMetadata(ctx context.Context, episodeID string) (models.Episode, bool, error) {
	if checkName(episodeID) != nil {
		return models.Episode{}, false, nil
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(metadataObjectKey(episodeID)),
	})
	if isNotFound(err) {
		return models.Episode{}, false, nil
	}
	if err != nil {
		return models.Episode{}, false, fmt.Errorf("failed to get metadata %s: %w", episodeID, err)
	}
	defer out.Body.Close()

	var ep models.Episode
	if err := json.NewDecoder(out.Body).Decode(&ep); err != nil {
		return models.Episode{}, false, fmt.Errorf("failed to decode metadata %s: %w", episodeID, err)
	}
	return ep, true, nil
}

// ListEpisodes implements Adapter. Objects that fail to load are skipped.
func (s *S3) ListEpisodes(ctx context.Context) ([]models.EpisodeSummary, error) {
	var ids []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(metadataPrefix + "/"),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(key, metadataPrefix+"/"), ".json"))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		episodes = make([]models.EpisodeSummary, 0, len(ids))
	)
	for _, id := range ids {
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			ep, ok, err := s.GetMetadata(ctx, id)
			if err != nil {
				s.logger.Warn("skipping unreadable metadata", zap.String("id", id), zap.Error(err))
				return
			}
			if !ok {
				return
			}
			mu.Lock()
			episodes = append(episodes, ep.Summary())
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("failed to schedule metadata read: %w", submitErr)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Debug("listed episodes", zap.Int("count", len(episodes)))
	return episodes, nil
}

// GetAudioStream implements Adapter.
func (s *S3) GetAudioStream(ctx context.Context, filename string) (*AudioStream, error) {
	if checkName(filename) != nil {
		return nil, ErrNotFound
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(audioObjectKey(filename)),
	})
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audio %s: %w", filename, err)
	}

	contentType := aws.StringValue(out.ContentType)
	if contentType == "" {
		contentType = AudioContentType
	}
	return &AudioStream{
		Body:          out.Body,
		ContentType:   contentType,
		ContentLength: aws.Int64Value(out.ContentLength),
	}, nil
}

// DeleteEpisode implements Adapter.
func (s *S3) DeleteEpisode(ctx context.Context, episodeID string) error {
	ep, ok, err := s.GetMetadata(ctx, episodeID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if _, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(metadataObjectKey(episodeID)),
	}); err != nil {
		return fmt.Errorf("failed to delete metadata %s: %w", episodeID, err)
	}
	if key := AudioKey(ep); checkName(key) == nil {
		if _, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(audioObjectKey(key)),
		}); err != nil {
			return fmt.Errorf("failed to delete audio %s: %w", key, err)
		}
	}
	s.logger.Info("deleted episode", zap.String("id", episodeID))
	return nil
}

// Close releases the worker pool.
func (s *S3) Close() error {
	s.pool.Release()
	return nil
}

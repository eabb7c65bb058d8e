// Package blob reads Relion export payloads from the S3-compatible bucket
// the producer drops oversized payloads into.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nordicfin/relion-bridge/pkg/logger"
)

// Store fetches payloads from the producer's buckets
type Store struct {
	client        *s3.Client
	defaultBucket string
	logger        *logger.Logger
}

// NewStore creates a new payload store. defaultBucket is used when a
// notification does not name a container.
func NewStore(client *s3.Client, defaultBucket string, log *logger.Logger) *Store {
	return &Store{
		client:        client,
		defaultBucket: defaultBucket,
		logger:        log.WithField("component", "blob"),
	}
}

// Fetch reads a payload by container and key. An empty container falls back
// to the configured default bucket.
func (s *Store) Fetch(ctx context.Context, container, key string) ([]byte, error) {
	bucket := container
	if bucket == "" {
		bucket = s.defaultBucket
	}
	s.logger.Debug("fetching payload", "bucket", bucket, "key", key)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payload %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload %s: %w", key, err)
	}

	s.logger.Debug("payload fetched", "key", key, "bytes", len(data))
	return data, nil
}

// Package objectstore adapts run.ObjectStore to a MinIO/S3-compatible
// bucket for offloaded run payloads and metadata.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sethvargo/go-retry"

	"github.com/nneven/runtrigger/pkg/config"
)

// uploadMaxRetries bounds the exponential backoff applied to a transient
// PutObject failure (spec.md §7: object store outages are retryable).
const uploadMaxRetries = 3

// Store implements run.ObjectStore against a MinIO-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New creates a Store from cfg, ensuring the target bucket exists.
func New(ctx context.Context, cfg *config.ObjectStoreConfig) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("objectstore: config is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey.Value(), cfg.SecretKey.Value(), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: new client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("objectstore: checking bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("objectstore: creating bucket: %w", err)
		}
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Upload implements run.ObjectStore. Transient PutObject failures are
// retried with exponential backoff before being surfaced, since a
// payload offload failure is a retryable collaborator outage, not a
// validation error (spec.md §7).
func (s *Store) Upload(ctx context.Context, filename string, data []byte, contentType string) error {
	backoff := retry.WithMaxRetries(uploadMaxRetries, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, putErr := s.client.PutObject(
			ctx,
			s.bucket,
			filename,
			bytes.NewReader(data),
			int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType},
		)
		if putErr != nil {
			return retry.RetryableError(putErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("objectstore: uploading %s: %w", filename, err)
	}
	return nil
}

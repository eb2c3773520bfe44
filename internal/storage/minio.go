package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds the configuration for MinIO publishing.
type MinIOConfig struct {
	Endpoint  string // host:port, without scheme
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// MinIOPublisher uploads segment files to a MinIO bucket.
type MinIOPublisher struct {
	client *minio.Client
	bucket string
}

// NewMinIOPublisher creates a new MinIOPublisher. No request is made until
// EnsureBucket or Publish is called.
func NewMinIOPublisher(cfg MinIOConfig) (*MinIOPublisher, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: MinIO endpoint and bucket are required", ErrPublisherNotConfigured)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}
	return &MinIOPublisher{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (p *MinIOPublisher) EnsureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Publish uploads the file at localPath to key and returns the object URL.
func (p *MinIOPublisher) Publish(ctx context.Context, key, localPath string) (string, error) {
	_, err := p.client.FPutObject(ctx, p.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("upload to MinIO: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", p.client.EndpointURL().String(), p.bucket, key), nil
}

var _ Publisher = (*MinIOPublisher)(nil)

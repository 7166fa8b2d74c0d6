// Package mirror copies the latest snapshot to an S3-compatible bucket.
//
// Only one object is ever written: the fixed key is overwritten on every new
// image and deleted when the PC reports no image. No history is kept.
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lockwatch-dev/lockwatch/pkg/publish"
)

// DefaultKey is the object key used when none is configured.
const DefaultKey = "lockwatch/latest.jpg"

// ObjectAPI is the part of the S3 client the mirror uses. *s3.Client
// implements it.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config describes the target bucket.
type Config struct {
	Bucket string
	Key    string

	// Region defaults to AWS_REGION, then "us-east-1".
	Region string

	// Endpoint overrides the service URL (MinIO, LocalStack).
	Endpoint string

	// PathStyle forces path-style addressing.
	PathStyle bool
}

// NewS3Client builds an S3 client from cfg and the standard AWS credential
// environment variables.
func NewS3Client(cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	return s3.New(s3.Options{
		Region:       region,
		Credentials:  aws.NewCredentialsCache(envCredentials()),
		UsePathStyle: cfg.PathStyle,
		BaseEndpoint: optionalString(cfg.Endpoint),
	})
}

func envCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		id := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, fmt.Errorf("mirror: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}, nil
	})
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// Mirror uploads images received from a Broker.
type Mirror struct {
	client  ObjectAPI
	bucket  string
	key     string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mirror) {
		m.logger = l
	}
}

// WithTimeout bounds each S3 request.
// Default: 30s
func WithTimeout(d time.Duration) Option {
	return func(m *Mirror) {
		m.timeout = d
	}
}

// New creates a Mirror writing to bucket/key.
func New(client ObjectAPI, bucket, key string, opts ...Option) *Mirror {
	if key == "" {
		key = DefaultKey
	}
	m := &Mirror{
		client:  client,
		bucket:  bucket,
		key:     key,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "mirror", "bucket", bucket, "key", key)
	return m
}

// Run mirrors images from b until ctx is cancelled or the broker closes.
// Bursts collapse to the most recent image.
func (m *Mirror) Run(ctx context.Context, b *publish.Broker) error {
	images, cancel := b.SubscribeImage()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case img, ok := <-images:
			if !ok {
				return nil
			}
			if err := m.Apply(ctx, img); err != nil {
				m.logger.Error("mirror error", "error", err)
			}
		}
	}
}

// Apply writes or removes the mirrored object for one image notification.
func (m *Mirror) Apply(ctx context.Context, img publish.Image) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if !img.Present {
		_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.bucket),
			Key:    aws.String(m.key),
		})
		if err != nil {
			return fmt.Errorf("mirror: delete %s: %w", m.key, err)
		}
		m.logger.Debug("image cleared")
		return nil
	}

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(m.key),
		Body:          bytes.NewReader(img.Data),
		ContentLength: aws.Int64(int64(len(img.Data))),
		ContentType:   aws.String(http.DetectContentType(img.Data)),
		CacheControl:  aws.String("no-store"),
		Metadata: map[string]string{
			"captured-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("mirror: put %s: %w", m.key, err)
	}
	m.logger.Debug("image mirrored", "bytes", len(img.Data))
	return nil
}

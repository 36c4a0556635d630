package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DownloadURLBuilder turns a storage key into a URL a client can fetch
type DownloadURLBuilder interface {
	DownloadURL(ctx context.Context, storageKey string) (string, error)
}

// BucketURLBuilder returns the plain virtual-hosted object URL
type BucketURLBuilder struct {
	Bucket string
}

func (b BucketURLBuilder) DownloadURL(ctx context.Context, storageKey string) (string, error) {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", b.Bucket, storageKey), nil
}

// MinioPresigner issues time-limited GET URLs for objects in one bucket
type MinioPresigner struct {
	client     *minio.Client
	bucketName string
	expiry     time.Duration
}

// MinioOptions configures NewMinioPresigner
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Expiry    time.Duration
}

// NewMinioPresigner initializes the client and ensures the bucket exists
func NewMinioPresigner(ctx context.Context, opts MinioOptions, logger *logrus.Logger) (*MinioPresigner, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		logger.WithField("bucket", opts.Bucket).Info("Creating bucket")
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinioPresigner{client: client, bucketName: opts.Bucket, expiry: opts.Expiry}, nil
}

func (p *MinioPresigner) DownloadURL(ctx context.Context, storageKey string) (string, error) {
	ctx, span := tracer.Start(ctx, "minio.presign_get",
		trace.WithAttributes(
			attribute.String("object_key", storageKey),
			attribute.Int64("expiry_seconds", int64(p.expiry.Seconds())),
		),
	)
	defer span.End()

	u, err := p.client.PresignedGetObject(ctx, p.bucketName, storageKey, p.expiry, url.Values{})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to presign download URL: %w", err)
	}
	return u.String(), nil
}

package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// minPartSize is the minimum allowed part size for S3 multipart uploads (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// S3Config holds the connection settings for an S3-compatible store.
type S3Config struct {
	// Endpoint is the S3-compatible endpoint URL. Leave empty for AWS S3.
	Endpoint string
	Region   string
	Bucket   string

	// Static credentials. When both are empty the default AWS chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle puts the bucket in the path; MinIO and most S3-compatible
	// providers need it.
	UsePathStyle bool

	// PartSize of multipart uploads, clamped to the S3 minimum.
	PartSize int64
}

// S3Writer uploads objects through the multipart upload manager.
type S3Writer struct {
	uploader *manager.Uploader
	bucket   string
}

var _ Writer = (*S3Writer)(nil)

// NewS3Writer creates a writer for cfg.Bucket.
func NewS3Writer(ctx context.Context, cfg S3Config) (*S3Writer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("archive: region is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	partSize := cfg.PartSize
	if partSize < minPartSize {
		partSize = minPartSize
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &S3Writer{
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = partSize
		}),
		bucket: cfg.Bucket,
	}, nil
}

// Put implements Writer.
func (w *S3Writer) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: upload %s: %w", key, err)
	}
	return nil
}

// Bucket returns the destination bucket.
func (w *S3Writer) Bucket() string {
	return w.bucket
}

// normaliseEndpoint adds https:// to an endpoint given without a scheme.
func normaliseEndpoint(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	return "https://" + endpoint
}

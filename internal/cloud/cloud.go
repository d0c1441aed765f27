// Package cloud uploads budget files to remote storage.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotConfigured is returned by S3Config.Validate when no bucket is set.
var ErrNotConfigured = errors.New("cloud: upload bucket not configured")

// Uploader copies a budget file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, budgetID, file string) error
}

// UploaderFunc adapts a function to the Uploader interface.
type UploaderFunc func(ctx context.Context, budgetID, file string) error

// Upload calls f.
func (f UploaderFunc) Upload(ctx context.Context, budgetID, file string) error {
	return f(ctx, budgetID, file)
}

// NopUploader discards uploads. Used when remote storage is disabled.
type NopUploader struct{}

// Upload does nothing.
func (NopUploader) Upload(context.Context, string, string) error { return nil }

// S3Config holds the parameters of an S3-compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional; set for MinIO and other S3-compatible servers
	PathStyle bool
	Prefix    string
}

// Validate checks that the config names a bucket.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return ErrNotConfigured
	}
	return nil
}

// S3Uploader stores each budget file as <prefix>/<budget id>/db.sqlite.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader builds an uploader from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	opts := append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, optFns...)
	client := s3.NewFromConfig(awsCfg, opts...)
	return NewS3UploaderFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3UploaderFromClient wraps an existing S3 client.
func NewS3UploaderFromClient(client *s3.Client, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key a budget is stored under.
func (u *S3Uploader) Key(budgetID string) string {
	return path.Join(u.prefix, budgetID, "db.sqlite")
}

// Upload puts the budget file into the bucket, replacing any earlier copy.
func (u *S3Uploader) Upload(ctx context.Context, budgetID, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("upload %s: %w", budgetID, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("upload %s: %w", budgetID, err)
	}

	key := u.Key(budgetID)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/vnd.sqlite3"),
		Metadata:      map[string]string{"budget-id": budgetID},
	})
	if err != nil {
		return fmt.Errorf("upload %s to s3://%s/%s: %w", budgetID, u.bucket, key, err)
	}
	return nil
}

// Package storage provides object storage for rendered statements.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/horizonbank/backend/internal/application/transfer"
	infraconfig "github.com/horizonbank/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure S3StatementArchive implements the application port
var _ transfer.StatementArchive = (*S3StatementArchive)(nil)

// S3StatementArchive stores rendered statements in an S3-compatible
// bucket (AWS S3, MinIO, localstack).
type S3StatementArchive struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// S3StatementArchiveOption is a functional option for configuring S3StatementArchive
type S3StatementArchiveOption func(*S3StatementArchive)

// WithLogger sets a custom logger for S3StatementArchive
func WithLogger(logger *zap.Logger) S3StatementArchiveOption {
	return func(s *S3StatementArchive) {
		s.logger = logger
	}
}

// NewS3StatementArchive creates a new archive from configuration
func NewS3StatementArchive(cfg *infraconfig.StorageConfig, opts ...S3StatementArchiveOption) (*S3StatementArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			if _, err := url.Parse(endpoint); err == nil {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}
	})

	archive := &S3StatementArchive{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// Put stores one rendered statement under key
func (s *S3StatementArchive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to archive statement %s: %w", key, err)
	}
	s.logger.Debug("Statement archived",
		zap.String("key", key),
		zap.Int("size", len(body)),
	)
	return nil
}

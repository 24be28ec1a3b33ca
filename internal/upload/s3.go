package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/rjweb/internal/config"
)

const s3KeyPrefix = "uploads/"

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage uploads to an S3-compatible bucket that is publicly readable
// at publicBaseURL.
type S3Storage struct {
	client        s3Client
	bucket        string
	publicBaseURL string
}

func NewS3Storage(cfg config.UploadsConfig) *S3Storage {
	return &S3Storage{
		client:        newS3Client(cfg),
		bucket:        cfg.S3Bucket,
		publicBaseURL: strings.TrimRight(cfg.S3PublicBaseURL, "/"),
	}
}

func newS3Client(cfg config.UploadsConfig) *s3.Client {
	opts := s3.Options{
		Region:       cfg.S3Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
	}
	return s3.New(opts)
}

func (s *S3Storage) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	key := s3KeyPrefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return s.publicBaseURL + "/" + key, nil
}

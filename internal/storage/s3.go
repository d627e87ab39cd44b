package storage

import (
	"context"
	"io"
	"time"

	"github.com/huseinhashi/academic-record/internal/config"
	apperrors "github.com/huseinhashi/academic-record/pkg/errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type S3Storage struct {
	client  *s3.S3
	bucket  string
	timeout time.Duration
}

func NewS3Storage(cfg *config.Config) (*S3Storage, error) {
	s3Config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.Storage.S3.AccessKey, cfg.Storage.S3.SecretKey, ""),
		Endpoint:         aws.String(cfg.Storage.S3.Endpoint),
		Region:           aws.String(cfg.Storage.S3.Region),
		DisableSSL:       aws.Bool(!cfg.Storage.S3.UseSSL),
		S3ForcePathStyle: aws.Bool(true),
	}

	sess, err := session.NewSession(s3Config)
	if err != nil {
		return nil, err
	}

	return &S3Storage{
		client:  s3.New(sess),
		bucket:  cfg.Storage.S3.Bucket,
		timeout: cfg.Storage.Timeout,
	}, nil
}

func (s *S3Storage) Store(ctx context.Context, key string, data io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return apperrors.Storage("failed to store blob", err)
	}
	return nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperrors.Storage("failed to delete blob", err)
	}
	return nil
}

// SignedURL presigns a GET for the blob. The object must exist: a link to
// a missing blob is a provider failure, not a silent empty link.
func (s *S3Storage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", time.Time{}, apperrors.Storage("blob not retrievable", err)
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		return "", time.Time{}, apperrors.Storage("failed to presign blob url", err)
	}

	return url, time.Now().Add(ttl), nil
}

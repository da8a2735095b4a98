package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioStore struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
}

// MinioConfig holds configuration for the MinIO image store
type MinioConfig struct {
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	URLExpiry time.Duration
}

// NewMinioStore creates an image store backed by a MinIO bucket
func NewMinioStore(cfg MinioConfig) (ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT is required for the %q image source", SourceMinio)
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}

	// minio-go wants host:port, the scheme is expressed through Secure
	endpoint := cfg.Endpoint
	if strings.HasPrefix(endpoint, "https://") {
		cfg.UseSSL = true
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &minioStore{
		client:    client,
		bucket:    cfg.Bucket,
		urlExpiry: cfg.URLExpiry,
	}, nil
}

// Fetch downloads an image object from the bucket
func (s *minioStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrapError(name, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key before reading
	if _, err := obj.Stat(); err != nil {
		return nil, s.wrapError(name, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrapError(name, err)
	}
	return data, nil
}

// URL generates a pre-signed URL for downloading the image
func (s *minioStore) URL(ctx context.Context, name string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, name, s.urlExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return u.String(), nil
}

func (s *minioStore) wrapError(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	return fmt.Errorf("%w: failed to download %s: %v", ErrStoreUnavailable, name, err)
}

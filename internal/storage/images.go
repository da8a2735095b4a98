package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrImageNotFound is returned when the store has no object under the requested name
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidImage is returned when an object exists but cannot be decoded as an image
	ErrInvalidImage = errors.New("invalid image")
	// ErrStoreUnavailable wraps transport or credential failures talking to a store
	ErrStoreUnavailable = errors.New("image store unavailable")
)

// Image sources
const (
	SourceFS    = "fs"
	SourceS3    = "s3"
	SourceMinio = "minio"
)

// ImageStore reads reference images for the lab page
type ImageStore interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	URL(ctx context.Context, name string) (string, error)
}

// Config selects and configures an ImageStore
type Config struct {
	Source    string
	Dir       string
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	URLExpiry time.Duration
}

// New creates the image store named by cfg.Source
func New(cfg Config) (ImageStore, error) {
	switch cfg.Source {
	case SourceFS, "":
		return NewFSStore(cfg.Dir)
	case SourceS3:
		return NewS3Store(S3Config{
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			URLExpiry: cfg.URLExpiry,
		})
	case SourceMinio:
		return NewMinioStore(MinioConfig{
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			URLExpiry: cfg.URLExpiry,
		})
	default:
		return nil, fmt.Errorf("unsupported image source %q (use %q, %q or %q)", cfg.Source, SourceFS, SourceS3, SourceMinio)
	}
}

// Image describes a decoded reference image
type Image struct {
	Name        string
	URL         string
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Load fetches an image from the store and checks that it decodes
func Load(ctx context.Context, store ImageStore, name string) (*Image, []byte, error) {
	data, err := store.Fetch(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidImage, name, err)
	}

	imgURL, err := store.URL(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	return &Image{
		Name:        name,
		URL:         imgURL,
		Format:      format,
		ContentType: http.DetectContentType(data),
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, data, nil
}

// validateName rejects names that would escape the image directory or bucket prefix
func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid image name %q", ErrImageNotFound, name)
	}
	return nil
}

type fsStore struct {
	dir string
}

// NewFSStore serves images from a local directory
func NewFSStore(dir string) (ImageStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("IMAGE_DIR is required for the %q image source", SourceFS)
	}
	return &fsStore{dir: dir}, nil
}

// Fetch reads the named file from the image directory
func (s *fsStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, name)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrStoreUnavailable, name, err)
	}
	return data, nil
}

// URL points at the API route that streams the image
func (s *fsStore) URL(ctx context.Context, name string) (string, error) {
	return "/api/images/" + url.PathEscape(name), nil
}

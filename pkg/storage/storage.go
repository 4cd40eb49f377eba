package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage abstracts flat-file access for region lists and reports.
// Two backends exist: the local filesystem and S3.
type Storage interface {
	// ReadFile reads the whole file at path.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to path, creating parent directories as needed.
	WriteFile(path string, data []byte) error

	// Exists reports whether path already exists.
	Exists(path string) (bool, error)

	// IsRemote reports whether the backend is an object store.
	IsRemote() bool
}

// For returns the backend appropriate for path. Paths starting with s3://
// are served from S3; everything else from the local filesystem.
func For(ctx context.Context, path string) (Storage, error) {
	if strings.HasPrefix(path, "s3://") {
		return NewS3(ctx)
	}
	return Local{}, nil
}

// Local serves files from the local filesystem.
type Local struct{}

func (Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (Local) WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (Local) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (Local) IsRemote() bool { return false }

// S3 serves files from AWS S3. Paths passed to its methods must be full
// s3://bucket/key URLs.
type S3 struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	ctx        context.Context
}

// NewS3 creates an S3 backend using the default AWS credential chain.
func NewS3(ctx context.Context) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		ctx:        ctx,
	}, nil
}

// splitS3Path splits an s3://bucket/key URL into bucket and key.
func splitS3Path(path string) (bucket, key string, err error) {
	if !strings.HasPrefix(path, "s3://") {
		return "", "", fmt.Errorf("invalid S3 path: %s (must start with s3://)", path)
	}
	rest := strings.TrimPrefix(path, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 path: %s (expected s3://bucket/key)", path)
	}
	return parts[0], parts[1], nil
}

func (s *S3) ReadFile(path string) ([]byte, error) {
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return nil, err
	}
	buf := manager.NewWriteAtBuffer(nil)
	_, err = s.downloader.Download(s.ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func (s *S3) WriteFile(path string, data []byte) error {
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return err
	}
	_, err = s.uploader.Upload(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to %s: %w", path, err)
	}
	return nil
}

func (s *S3) Exists(path string) (bool, error) {
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3) IsRemote() bool { return true }

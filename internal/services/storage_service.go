// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/javajoker/rwa-backend/internal/config"
)

// StorageService archives canonical metadata documents by content hash,
// to S3 when credentials are configured and to a local directory otherwise.
type StorageService struct {
	s3Client s3iface.S3API
	config   *config.Config
}

type ArchiveResult struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{config: config}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// NewStorageServiceWithClient uses an existing S3 client.
func NewStorageServiceWithClient(config *config.Config, client s3iface.S3API) *StorageService {
	return &StorageService{s3Client: client, config: config}
}

func archiveKey(hash string) string {
	return fmt.Sprintf("metadata/%s.json", hash)
}

// ArchiveMetadata writes body under metadata/<hash>.json. Content-addressed
// keys make rewrites idempotent.
func (s *StorageService) ArchiveMetadata(ctx context.Context, hash string, body []byte) (*ArchiveResult, error) {
	key := archiveKey(hash)
	if s.s3Client == nil {
		return s.archiveToLocal(key, body)
	}

	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &ArchiveResult{
		URL:  s.getS3URL(key),
		Key:  key,
		Size: int64(len(body)),
	}, nil
}

func (s *StorageService) archiveToLocal(key string, body []byte) (*ArchiveResult, error) {
	path := filepath.Join(s.config.Archive.LocalDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write archive file: %w", err)
	}

	return &ArchiveResult{
		URL:  "file://" + filepath.ToSlash(path),
		Key:  key,
		Size: int64(len(body)),
	}, nil
}

// ArchiveURL returns a time-limited link to an archived document.
func (s *StorageService) ArchiveURL(hash string, expiration time.Duration) (string, error) {
	key := archiveKey(hash)
	if s.s3Client == nil {
		path := filepath.Join(s.config.Archive.LocalDir, filepath.FromSlash(key))
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("archive not found: %w", err)
		}
		return "file://" + filepath.ToSlash(path), nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

func (s *StorageService) getS3URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

// internal/services/metadata_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/store"
	"github.com/javajoker/rwa-backend/internal/utils"
)

const (
	metadataHashLength = 16
	archiveLinkTTL     = 15 * time.Minute
)

type MetadataArchiver interface {
	ArchiveMetadata(ctx context.Context, hash string, body []byte) (*ArchiveResult, error)
	ArchiveURL(hash string, expiration time.Duration) (string, error)
}

// MetadataService stores arbitrary JSON content-addressed by a truncated
// SHA-256 of its canonical form.
type MetadataService struct {
	docs    store.MetadataRepository
	archive MetadataArchiver
}

type MetadataResult struct {
	Metadata     map[string]interface{} `json:"metadata"`
	MetadataHash string                 `json:"metadata_hash"`
	MetadataID   string                 `json:"metadata_id,omitempty"`
	Verified     bool                   `json:"verified"`
}

// NewMetadataService accepts a nil archive.
func NewMetadataService(docs store.MetadataRepository, archive MetadataArchiver) *MetadataService {
	return &MetadataService{docs: docs, archive: archive}
}

// ComputeMetadataHash is stable under key reordering.
func ComputeMetadataHash(metadata map[string]interface{}) (string, error) {
	hash, _, err := canonicalHash(metadata)
	return hash, err
}

func canonicalHash(metadata map[string]interface{}) (string, []byte, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	body, err := utils.CanonicalJSON(metadata)
	if err != nil {
		return "", nil, validationError("metadata is not serialisable: %v", err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])[:metadataHashLength], body, nil
}

// Store persists metadata and returns its hash and id. Content that is
// already stored returns the existing pair.
func (s *MetadataService) Store(ctx context.Context, metadata map[string]interface{}) (string, string, error) {
	normalized, _ := utils.NormalizeJSON(metadata).(map[string]interface{})
	if normalized == nil {
		normalized = map[string]interface{}{}
	}

	hash, body, err := canonicalHash(normalized)
	if err != nil {
		return "", "", err
	}

	doc := &models.MetadataDocument{
		ID:        uuid.NewString(),
		Hash:      hash,
		Metadata:  normalized,
		CreatedAt: time.Now().UTC(),
	}

	err = s.docs.InsertMetadata(ctx, doc)
	if errors.Is(err, store.ErrDuplicate) {
		existing, findErr := s.docs.FindMetadataByHash(ctx, hash)
		if findErr != nil {
			return "", "", fmt.Errorf("failed to store metadata: %w", findErr)
		}
		return existing.Hash, existing.ID, nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to store metadata: %w", err)
	}

	s.archiveDocument(ctx, hash, body)
	return hash, doc.ID, nil
}

func (s *MetadataService) archiveDocument(ctx context.Context, hash string, body []byte) {
	if s.archive == nil {
		return
	}
	result, err := s.archive.ArchiveMetadata(ctx, hash, body)
	if err != nil {
		logrus.WithError(err).WithField("metadata_hash", hash).Warn("Failed to archive metadata")
		return
	}
	logrus.WithFields(logrus.Fields{
		"metadata_hash": hash,
		"key":           result.Key,
		"size":          result.Size,
	}).Debug("Metadata archived")
}

// GetByHash fails when the stored payload no longer matches hash.
func (s *MetadataService) GetByHash(ctx context.Context, hash string) (*MetadataResult, error) {
	doc, err := s.docs.FindMetadataByHash(ctx, hash)
	if err != nil {
		return nil, s.lookupError("hash", hash, err)
	}

	computed, err := ComputeMetadataHash(doc.Metadata)
	if err != nil || computed != hash {
		logrus.WithField("metadata_hash", hash).Warn("Metadata integrity check failed")
		return nil, ErrIntegrity
	}

	return &MetadataResult{
		Metadata:     doc.Metadata,
		MetadataHash: hash,
		MetadataID:   doc.ID,
		Verified:     true,
	}, nil
}

// GetByID returns the payload even when it fails verification.
func (s *MetadataService) GetByID(ctx context.Context, id string) (*MetadataResult, error) {
	doc, err := s.docs.FindMetadataByID(ctx, id)
	if err != nil {
		return nil, s.lookupError("ID", id, err)
	}

	computed, err := ComputeMetadataHash(doc.Metadata)
	return &MetadataResult{
		Metadata:     doc.Metadata,
		MetadataHash: doc.Hash,
		MetadataID:   doc.ID,
		Verified:     err == nil && computed == doc.Hash,
	}, nil
}

// ArchiveLink returns a short-lived link to the archived copy of a
// verified document.
func (s *MetadataService) ArchiveLink(ctx context.Context, hash string) (string, error) {
	if _, err := s.GetByHash(ctx, hash); err != nil {
		return "", err
	}
	if s.archive == nil {
		return "", fmt.Errorf("%w: metadata archive is disabled", ErrNotFound)
	}

	url, err := s.archive.ArchiveURL(hash, archiveLinkTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return url, nil
}

func (s *MetadataService) lookupError(kind, key string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: metadata not found for %s: %s", ErrNotFound, kind, key)
	}
	return fmt.Errorf("failed to retrieve metadata: %w", err)
}

// Resolve returns the metadata for hash or the placeholder shown when it
// cannot be loaded.
func (s *MetadataService) Resolve(ctx context.Context, hash string) (map[string]interface{}, bool) {
	result, err := s.GetByHash(ctx, hash)
	if err != nil {
		return map[string]interface{}{"error": "Metadata not found"}, false
	}
	return result.Metadata, true
}

package service

import (
	"context"
	"strings"

	"github.com/atinyakov/SecureNotes/internal/errs"
	"github.com/atinyakov/SecureNotes/internal/models"
)

// ObjectRepository persists blobs and the metadata blob per user.
type ObjectRepository interface {
	ListObjects(ctx context.Context, userID string) ([]models.ObjectInfo, error)
	GetObject(ctx context.Context, userID, path string) (models.Object, error)
	PutObject(ctx context.Context, userID, path string, data []byte, limit int64) error
	DeleteObject(ctx context.Context, userID, path string) error
	Usage(ctx context.Context, userID string) (int64, error)
	GetMetadata(ctx context.Context, userID string) ([]byte, error)
	PutMetadata(ctx context.Context, userID string, data []byte) error
}

// ObjectService stores opaque blobs under per-user paths and enforces the
// storage quota. A limit of zero means unlimited.
type ObjectService struct {
	repo  ObjectRepository
	limit int64
}

// NewObjectService creates an ObjectService.
func NewObjectService(repo ObjectRepository, limit int64) *ObjectService {
	return &ObjectService{repo: repo, limit: limit}
}

// ValidatePath rejects empty, absolute and dot-segment paths.
func ValidatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") {
		return errs.ErrInvalidPath
	}
	for _, s := range strings.Split(path, "/") {
		if s == "" || s == "." || s == ".." {
			return errs.ErrInvalidPath
		}
	}
	return nil
}

func (s *ObjectService) List(ctx context.Context, userID string) ([]models.ObjectInfo, error) {
	return s.repo.ListObjects(ctx, userID)
}

func (s *ObjectService) Get(ctx context.Context, userID, path string) (models.Object, error) {
	if err := ValidatePath(path); err != nil {
		return models.Object{}, err
	}
	return s.repo.GetObject(ctx, userID, path)
}

// Put stores data at path. A write that would take the user over the limit
// yields errs.ErrQuotaExceeded.
func (s *ObjectService) Put(ctx context.Context, userID, path string, data []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if s.limit > 0 && int64(len(data)) > s.limit {
		return errs.ErrQuotaExceeded
	}
	return s.repo.PutObject(ctx, userID, path, data, s.limit)
}

func (s *ObjectService) Delete(ctx context.Context, userID, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	return s.repo.DeleteObject(ctx, userID, path)
}

func (s *ObjectService) GetMetadata(ctx context.Context, userID string) ([]byte, error) {
	return s.repo.GetMetadata(ctx, userID)
}

func (s *ObjectService) PutMetadata(ctx context.Context, userID string, data []byte) error {
	return s.repo.PutMetadata(ctx, userID, data)
}

// Quota reports the user's usage against the configured limit.
func (s *ObjectService) Quota(ctx context.Context, userID string) (models.Quota, error) {
	used, err := s.repo.Usage(ctx, userID)
	if err != nil {
		return models.Quota{}, err
	}
	return models.Quota{UsedBytes: used, QuotaBytes: s.limit, Unlimited: s.limit == 0}, nil
}

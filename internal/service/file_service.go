package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/repository"
	"github.com/digkill/AIMultiverse/internal/storage"
)

// ObjectStore persists artifact bytes somewhere a client can fetch them.
type ObjectStore interface {
	Put(ctx context.Context, accountID string, data []byte, contentType string) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

type FileService struct {
	log   *slog.Logger
	files *repository.FileRepository
	store ObjectStore
	now   func() time.Time
}

func NewFileService(log *slog.Logger, files *repository.FileRepository, store ObjectStore) *FileService {
	if store == nil {
		store = storage.InlineStore{}
	}
	return &FileService{log: log, files: files, store: store, now: time.Now}
}

func (s *FileService) Save(ctx context.Context, accountID string, kind models.FileKind, name string, data []byte, contentType string) (*models.SavedFile, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown file kind %q", ErrInvalidInput, kind)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s-%s", kind, s.now().UTC().Format("20060102-150405"))
	}
	if len(name) > 255 {
		name = name[:255]
	}

	obj, err := s.store.Put(ctx, accountID, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	f := &models.SavedFile{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Kind:       kind,
		Name:       name,
		URL:        obj.URL,
		StorageKey: obj.Key,
		CreatedAt:  s.now(),
	}
	if err := s.files.Create(ctx, f); err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			s.log.Warn("failed to remove orphaned artifact", "key", obj.Key, "err", delErr)
		}
		return nil, err
	}
	return f, nil
}

func (s *FileService) List(ctx context.Context, accountID string) ([]models.SavedFile, error) {
	return s.files.ListByAccount(ctx, accountID)
}

// Delete removes an owner's file. Files owned by someone else look missing.
func (s *FileService) Delete(ctx context.Context, accountID, fileID string) error {
	f, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if f == nil || f.AccountID != accountID {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	ok, err := s.files.Delete(ctx, fileID, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	if err := s.store.Delete(ctx, f.StorageKey); err != nil {
		s.log.Warn("failed to delete stored artifact", "file_id", fileID, "err", err)
	}
	return nil
}

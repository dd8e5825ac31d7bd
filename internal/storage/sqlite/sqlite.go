// Package sqlite implements storage.Store on an embedded SQLite database
// through GORM. A single mutex serializes every operation so no caller
// observes an inconsistent intermediate state.
package sqlite

import (
	"clipvault/internal/storage"
	"clipvault/pkg/types"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type SQLiteStore struct {
	db            *gorm.DB
	mu            sync.Mutex
	blobPath      string
	previewLength int
	inlineLimit   int64
}

// New opens (or creates) the database at config.DBPath and brings its
// schema up to the current version. A failed schema migration aborts the
// open; per-row migration failures do not.
func New(config storage.Config) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(config.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	previewLength := config.PreviewLength
	if previewLength <= 0 {
		previewLength = storage.DefaultPreviewLength
	}

	inlineLimit := config.MaxInlineSize
	if inlineLimit <= 0 {
		inlineLimit = storage.DefaultMaxInlineSize
	}

	s := &SQLiteStore{
		db:            db,
		blobPath:      config.BlobPath,
		previewLength: previewLength,
		inlineLimit:   inlineLimit,
	}

	if err := s.runMigrations(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert implements storage.Store.
func (s *SQLiteStore) Insert(ctx context.Context, item *types.ClipboardItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}
	item.Content = types.Preview(item.Content, s.previewLength)

	model := storage.FromItem(item)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert clip: %w", storage.ErrDuplicateHash)
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}
	item.ID = model.ID
	return nil
}

// Get implements storage.Store.
func (s *SQLiteStore) Get(ctx context.Context, id uint64) (*types.ClipboardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var model storage.ItemModel
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return model.ToItem(), nil
}

// List implements storage.Store.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*types.ClipboardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.db.WithContext(ctx).Model(&storage.ItemModel{}).Order("timestamp DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var models []storage.ItemModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	items := make([]*types.ClipboardItem, len(models))
	for i := range models {
		items[i] = models[i].ToItem()
	}
	return items, nil
}

// ExistsByHash implements storage.Store.
func (s *SQLiteStore) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	err := s.db.WithContext(ctx).Model(&storage.ItemModel{}).
		Where("content_hash = ?", hash).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check for existing content: %w", err)
	}
	return count > 0, nil
}

// Touch implements storage.Store.
func (s *SQLiteStore) Touch(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).Model(&storage.ItemModel{}).
		Where("content_hash = ?", hash).
		Update("timestamp", time.Now())
	if result.Error != nil {
		return fmt.Errorf("failed to touch item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ToggleFavorite implements storage.Store.
func (s *SQLiteStore) ToggleFavorite(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).Model(&storage.ItemModel{}).
		Where("id = ?", id).
		Update("is_favorite", gorm.Expr("NOT is_favorite"))
	if result.Error != nil {
		return fmt.Errorf("failed to toggle favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete implements storage.Store.
func (s *SQLiteStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).Delete(&storage.ItemModel{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Clear implements storage.Store. Favorites survive a clear.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).
		Where("is_favorite = ?", false).
		Delete(&storage.ItemModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Count implements storage.Store.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.WithContext(ctx).Model(&storage.ItemModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// DeleteOlderThan implements storage.Store. Favorites are never aged out.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).
		Where("timestamp < ? AND is_favorite = ?", cutoff, false).
		Delete(&storage.ItemModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old items: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// TrimToCount implements storage.Store. Eviction is oldest-first and skips
// favorites; max bounds the total row count including favorites.
func (s *SQLiteStore) TrimToCount(ctx context.Context, max int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.ItemModel{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	excess := total - int64(max)
	if excess <= 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).Exec(`
		DELETE FROM items WHERE id IN (
			SELECT id FROM items
			WHERE is_favorite = 0
			ORDER BY timestamp ASC, id ASC
			LIMIT ?
		)`, excess)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to trim history: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// Matched on the message because both sqlite drivers GORM can sit on wrap
// the underlying code differently.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

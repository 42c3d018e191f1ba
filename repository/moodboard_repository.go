package repository

import (
	"context"
	"errors"
	"fmt"

	"moodmuse/logger"
	"moodmuse/model"

	"gorm.io/gorm"
)

// MoodboardRepository defines the persistence operations for shared
// moodboards.
type MoodboardRepository interface {
	Create(ctx context.Context, record *model.MoodboardRecord) error
	GetByID(ctx context.Context, id string) (*model.MoodboardRecord, error)
	IncrementViewCount(ctx context.Context, id string) (int64, error)
	SetViewCount(ctx context.Context, id string, count int64) error
}

// mysqlMoodboardRepository implements MoodboardRepository on GORM/MySQL.
type mysqlMoodboardRepository struct {
	db *gorm.DB
}

// NewMySQLMoodboardRepository creates a new MySQL-backed repository.
func NewMySQLMoodboardRepository(db *gorm.DB) MoodboardRepository {
	return &mysqlMoodboardRepository{db: db}
}

// Create persists a new record. A slug collision surfaces as the
// underlying duplicate-key error.
func (r *mysqlMoodboardRepository) Create(ctx context.Context, record *model.MoodboardRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create moodboard %s: %w", record.ID, err)
	}
	logger.Info("Moodboard saved",
		logger.String("id", record.ID),
		logger.Int("tracks", len(record.Playlist)),
		logger.Int("images", len(record.Images)))
	return nil
}

// GetByID fetches a record by slug. A missing record returns (nil, nil).
func (r *mysqlMoodboardRepository) GetByID(ctx context.Context, id string) (*model.MoodboardRecord, error) {
	var record model.MoodboardRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load moodboard %s: %w", id, err)
	}
	return &record, nil
}

// IncrementViewCount bumps the counter by one and returns the new value.
func (r *mysqlMoodboardRepository) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.MoodboardRecord{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to increment view count for %s: %w", id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return 0, fmt.Errorf("moodboard %s not found", id)
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.MoodboardRecord{}).
		Where("id = ?", id).
		Pluck("view_count", &count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read view count for %s: %w", id, err)
	}
	return count, nil
}

// SetViewCount overwrites the counter (used for write-back from the
// cache-side counter; last write wins).
func (r *mysqlMoodboardRepository) SetViewCount(ctx context.Context, id string, count int64) error {
	err := r.db.WithContext(ctx).Model(&model.MoodboardRecord{}).
		Where("id = ?", id).
		UpdateColumn("view_count", count).Error
	if err != nil {
		return fmt.Errorf("failed to set view count for %s: %w", id, err)
	}
	return nil
}

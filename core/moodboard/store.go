package moodboard

import (
	"context"
	"fmt"

	"moodmuse/core/slug"
	"moodmuse/logger"
	"moodmuse/model"
	"moodmuse/repository"
)

// RecordCache is the read cache and view counter kept in front of the
// repository. Optional: a nil cache means every read hits the database.
type RecordCache interface {
	GetRecord(ctx context.Context, id string) (*model.MoodboardRecord, error)
	SetRecord(ctx context.Context, record *model.MoodboardRecord) error
	IncrViews(ctx context.Context, id string, seed int64) (int64, error)
}

// ImageArchiver mirrors provider image URLs into durable storage.
// Optional: without one, boards keep the provider URLs.
type ImageArchiver interface {
	ArchiveImages(ctx context.Context, id string, urls []string) []string
}

// Store persists and retrieves shared moodboards.
type Store struct {
	repo    repository.MoodboardRepository
	cache   RecordCache
	archive ImageArchiver
	baseURL string
}

// NewStore creates a store over the given repository.
func NewStore(repo repository.MoodboardRepository, baseURL string) *Store {
	return &Store{repo: repo, baseURL: baseURL}
}

// SetCache attaches an optional record cache.
func (s *Store) SetCache(cache RecordCache) {
	s.cache = cache
}

// SetArchive attaches an optional image archiver.
func (s *Store) SetArchive(archive ImageArchiver) {
	s.archive = archive
}

// Save persists a result under a fresh slug and returns the slug.
// Image archival is best effort and happens before the insert so the
// stored record already points at the durable copies.
func (s *Store) Save(ctx context.Context, result *model.MoodboardResult) (string, error) {
	id := slug.New()

	images := result.Images
	if s.archive != nil && len(images) > 0 {
		images = s.archive.ArchiveImages(ctx, id, images)
	}

	record := model.NewMoodboardRecord(id, result)
	record.Images = model.ImageList(images)

	if err := s.repo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save moodboard: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetRecord(ctx, record); err != nil {
			logger.Warn("Failed to cache saved moodboard",
				logger.String("id", id),
				logger.ErrorField(err))
		}
	}

	return id, nil
}

// Get loads a shared moodboard and counts the view. An unknown id
// returns (nil, nil), not an error. Each successful retrieval
// increments the view count exactly once; when the cache-side counter
// is in play the database copy trails it (last write wins).
func (s *Store) Get(ctx context.Context, id string) (*model.MoodboardRecord, error) {
	var record *model.MoodboardRecord

	if s.cache != nil {
		cached, err := s.cache.GetRecord(ctx, id)
		if err != nil {
			logger.Warn("Moodboard cache read failed",
				logger.String("id", id),
				logger.ErrorField(err))
		} else {
			record = cached
		}
	}

	if record == nil {
		loaded, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, nil
		}
		record = loaded

		if s.cache != nil {
			if err := s.cache.SetRecord(ctx, record); err != nil {
				logger.Warn("Failed to cache moodboard",
					logger.String("id", id),
					logger.ErrorField(err))
			}
		}
	}

	record.ViewCount = s.countView(ctx, id, record.ViewCount)
	return record, nil
}

// countView increments the view counter through the cache when
// available, falling back to the database. A failed increment is
// logged and the in-memory count still advances so the caller sees a
// consistent read.
func (s *Store) countView(ctx context.Context, id string, current int64) int64 {
	if s.cache != nil {
		count, err := s.cache.IncrViews(ctx, id, current)
		if err == nil {
			if dbErr := s.repo.SetViewCount(ctx, id, count); dbErr != nil {
				logger.Warn("View count write-back failed",
					logger.String("id", id),
					logger.ErrorField(dbErr))
			}
			return count
		}
		logger.Warn("Cache view counter failed, falling back to database",
			logger.String("id", id),
			logger.ErrorField(err))
	}

	count, err := s.repo.IncrementViewCount(ctx, id)
	if err != nil {
		logger.Warn("Failed to increment view count",
			logger.String("id", id),
			logger.ErrorField(err))
		return current + 1
	}
	return count
}

// ShareURL builds the public link for a saved board.
func (s *Store) ShareURL(id string) string {
	return fmt.Sprintf("%s/board/%s", s.baseURL, id)
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"moodmuse/logger"
	"moodmuse/model"

	"github.com/go-redis/redis/v8"
)

// recordTTL bounds how long a cached record may serve reads. Records
// are immutable apart from the view counter, so a generous TTL is safe.
const recordTTL = 24 * time.Hour

// MoodboardCache caches shared moodboard records by slug and keeps the
// authoritative view counter.
type MoodboardCache struct {
	client *redis.Client
}

// NewMoodboardCache creates a cache over an open Redis connection.
func NewMoodboardCache(client *redis.Client) *MoodboardCache {
	return &MoodboardCache{client: client}
}

func recordKey(id string) string {
	return fmt.Sprintf("moodboard:record:%s", id)
}

func viewsKey(id string) string {
	return fmt.Sprintf("moodboard:views:%s", id)
}

// GetRecord returns the cached record, or nil on a miss.
func (c *MoodboardCache) GetRecord(ctx context.Context, id string) (*model.MoodboardRecord, error) {
	data, err := c.client.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached moodboard %s: %w", id, err)
	}

	var record model.MoodboardRecord
	if err := json.Unmarshal(data, &record); err != nil {
		// drop a poisoned entry rather than serving it
		logger.Warn("Dropping undecodable cached moodboard",
			logger.String("id", id),
			logger.ErrorField(err))
		c.client.Del(ctx, recordKey(id))
		return nil, nil
	}
	return &record, nil
}

// SetRecord caches a record.
func (c *MoodboardCache) SetRecord(ctx context.Context, record *model.MoodboardRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal moodboard %s: %w", record.ID, err)
	}
	if err := c.client.Set(ctx, recordKey(record.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache moodboard %s: %w", record.ID, err)
	}
	return nil
}

// IncrViews increments the view counter and returns the new total.
// seed is the persisted count used to initialize the counter the first
// time Redis sees this board (SETNX, so concurrent reads seed once).
func (c *MoodboardCache) IncrViews(ctx context.Context, id string, seed int64) (int64, error) {
	key := viewsKey(id)

	if err := c.client.SetNX(ctx, key, seed, 0).Err(); err != nil {
		return 0, fmt.Errorf("failed to seed view counter for %s: %w", id, err)
	}

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment view counter for %s: %w", id, err)
	}
	return count, nil
}

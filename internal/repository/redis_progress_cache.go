package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"saga-server/internal/models"
)

// Compile-time check
var _ ProgressRepository = (*cachedProgressRepository)(nil)

// cachedProgressRepository is a read-through / write-through cache in front
// of the canonical store. Cache failures degrade to the inner repository
// and are logged, never surfaced.
type cachedProgressRepository struct {
	inner  ProgressRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProgressRepository(inner ProgressRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) ProgressRepository {
	return &cachedProgressRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisProgressCache"),
	}
}

func progressKey(playerID uuid.UUID) string {
	return fmt.Sprintf("story_progress:%s", playerID.String())
}

func (r *cachedProgressRepository) Load(ctx context.Context, playerID uuid.UUID) (*models.StoryProgress, error) {
	key := progressKey(playerID)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		p := &models.StoryProgress{}
		if err := json.Unmarshal(raw, p); err == nil {
			return p, nil
		}
		// Corrupt cache entry: drop it and fall through to the store.
		r.logger.Warn("Dropping undecodable cache entry", zap.String("key", key))
		r.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("Cache read failed, falling back to store", zap.String("key", key), zap.Error(err))
	}

	p, err := r.inner.Load(ctx, playerID)
	if err != nil {
		return nil, err
	}
	r.put(ctx, key, p)
	return p, nil
}

func (r *cachedProgressRepository) Save(ctx context.Context, p *models.StoryProgress) error {
	if err := r.inner.Save(ctx, p); err != nil {
		return err
	}
	r.put(ctx, progressKey(p.PlayerID), p)
	return nil
}

func (r *cachedProgressRepository) put(ctx context.Context, key string, p *models.StoryProgress) {
	raw, err := json.Marshal(p)
	if err != nil {
		r.logger.Warn("Failed to encode progress for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

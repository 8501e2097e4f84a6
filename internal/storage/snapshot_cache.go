package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/models"
)

// SnapshotCache is a read-through Redis cache for completed snapshots.
// Status polling arrives every few seconds per client; the cache keeps
// that load off Postgres.
type SnapshotCache struct {
	redis  *RedisClient
	ttl    time.Duration
	logger *logging.Logger
}

// NewSnapshotCache creates a snapshot cache with the given TTL
func NewSnapshotCache(redisClient *RedisClient, ttl time.Duration, logger *logging.Logger) *SnapshotCache {
	return &SnapshotCache{redis: redisClient, ttl: ttl, logger: logger}
}

func snapshotKey(address string) string {
	return fmt.Sprintf("wrapped:snapshot:%s", address)
}

// Get returns the cached snapshot, or nil on a miss. Cache failures are
// logged and reported as misses; the caller falls through to Postgres.
func (c *SnapshotCache) Get(ctx context.Context, address string) (*models.StatsSnapshot, error) {
	data, err := c.redis.Client.Get(ctx, snapshotKey(address)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.logger.WithError(err).Warn("snapshot cache read failed")
		return nil, nil
	}

	var snapshot models.StatsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.WithError(err).Warn("snapshot cache entry corrupt, dropping")
		c.redis.Client.Del(ctx, snapshotKey(address))
		return nil, nil
	}
	return &snapshot, nil
}

// Set stores a snapshot with the cache TTL
func (c *SnapshotCache) Set(ctx context.Context, snapshot *models.StatsSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.redis.Client.Set(ctx, snapshotKey(snapshot.UserAddress), data, c.ttl).Err()
}

// Invalidate drops the cached snapshot after a recompute
func (c *SnapshotCache) Invalidate(ctx context.Context, address string) error {
	return c.redis.Client.Del(ctx, snapshotKey(address)).Err()
}

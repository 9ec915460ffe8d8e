package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/Walk_Companion/internal/config"
	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/Dias221467/Walk_Companion/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// PingRedis checks the connection.
func PingRedis(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Lookuper is the directory contract CachedDirectory wraps.
type Lookuper interface {
	Lookup(ctx context.Context, userID string) (models.PublicUser, bool, error)
}

// CachedDirectory caches found users in Redis. Absent users are not cached so
// a newly registered account shows up on the next read. A Redis failure
// degrades to a direct lookup.
type CachedDirectory struct {
	next   Lookuper
	client *redis.Client
	ttl    time.Duration
}

func NewCachedDirectory(next Lookuper, client *redis.Client, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{next: next, client: client, ttl: ttl}
}

func userCacheKey(userID string) string {
	return "walk:user:" + userID
}

func (d *CachedDirectory) Lookup(ctx context.Context, userID string) (models.PublicUser, bool, error) {
	key := userCacheKey(userID)

	bs, err := d.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u models.PublicUser
		if err := json.Unmarshal(bs, &u); err == nil {
			return u, true, nil
		}
		logger.Log.WithField("key", key).Warn("Dropping undecodable cached user")
	case errors.Is(err, redis.Nil):
	default:
		logger.Log.WithError(err).WithField("key", key).Warn("Redis get failed, falling back to directory")
	}

	u, found, err := d.next.Lookup(ctx, userID)
	if err != nil || !found {
		return u, found, err
	}

	if js, err := json.Marshal(u); err == nil {
		if err := d.client.Set(ctx, key, js, d.ttl).Err(); err != nil {
			logger.Log.WithError(err).WithField("key", key).Warn("Redis set failed")
		}
	}
	return u, true, nil
}

// Invalidate drops a cached user, e.g. after a profile change or deletion.
func (d *CachedDirectory) Invalidate(ctx context.Context, userID string) error {
	return d.client.Del(ctx, userCacheKey(userID)).Err()
}

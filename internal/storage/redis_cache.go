package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/report"
)

// RedisCache holds recently generated reports with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "offerdiag:report:"}
}

// Get returns (nil, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, id string) (*report.Report, error) {
	data, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decoding cached report: %w", err)
	}
	return &rep, nil
}

func (c *RedisCache) Set(ctx context.Context, rep *report.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+rep.ID, data, c.ttl).Err()
}

// CachedStore reads through the cache and writes to both. Cache failures
// are logged and never fail the call.
type CachedStore struct {
	Store
	cache *RedisCache
}

func NewCachedStore(store Store, cache *RedisCache) *CachedStore {
	return &CachedStore{Store: store, cache: cache}
}

func (s *CachedStore) SaveReport(ctx context.Context, rep *report.Report) error {
	if err := s.Store.SaveReport(ctx, rep); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, rep); err != nil {
		logger.Warn("storage: cache write failed", "id", rep.ID, "error", err)
	}
	return nil
}

func (s *CachedStore) GetReport(ctx context.Context, id string) (*report.Report, error) {
	rep, err := s.cache.Get(ctx, id)
	if err != nil {
		logger.Warn("storage: cache read failed", "id", id, "error", err)
	}
	if rep != nil {
		return rep, nil
	}
	rep, err = s.Store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, rep); err != nil {
		logger.Warn("storage: cache fill failed", "id", id, "error", err)
	}
	return rep, nil
}

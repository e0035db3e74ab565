// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/advisory"
)

// RedisConfig holds connection settings for the shared cache
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// RedisCache shares retrieved data between advisor instances. Redis
// enforces expiry, so an expired key is simply absent.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects to redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("Redis cache connected", zap.String("address", cfg.Address), zap.Int("db", cfg.DB))
	return &RedisCache{client: client, logger: logger}, nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, logger: logger}
}

// Get implements Cache. Redis errors are logged and treated as a miss.
func (r *RedisCache) Get(ctx context.Context, key Key) (advisory.RetrievedDatum, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key.String()).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Redis cache read failed", zap.String("key", key.String()), zap.Error(err))
		}
		return advisory.RetrievedDatum{}, false
	}

	var d advisory.RetrievedDatum
	if err := json.Unmarshal([]byte(val), &d); err != nil {
		r.logger.Warn("Discarding undecodable cache entry", zap.String("key", key.String()), zap.Error(err))
		return advisory.RetrievedDatum{}, false
	}
	return markCached(d), true
}

// Put implements Cache. Write failures are logged; the datum is still
// returned to the caller by the agent.
func (r *RedisCache) Put(ctx context.Context, key Key, datum advisory.RetrievedDatum, ttl time.Duration) {
	if ttl <= 0 {
		ttl = TTLFor(key.Type)
	}

	data, err := json.Marshal(datum)
	if err != nil {
		r.logger.Warn("Failed to encode cache entry", zap.String("key", key.String()), zap.Error(err))
		return
	}

	if err := r.client.Set(ctx, keyPrefix+key.String(), data, ttl).Err(); err != nil {
		r.logger.Warn("Redis cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// Purge implements Cache by deleting every advisor key
func (r *RedisCache) Purge(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Ping checks redis connectivity for health reporting
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the redis connection pool
func (r *RedisCache) Close() error {
	return r.client.Close()
}

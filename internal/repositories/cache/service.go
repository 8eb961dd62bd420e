package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService wraps Redis for the two cache concerns of the settlement
// core: creator earnings summaries and a fast-path check of processed
// event ids. The durable dedup set lives in Postgres; Redis only short
// circuits the common duplicate-delivery case.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Earnings summary caching

func EarningsSummaryKey(creatorID uint, period string) string {
	return fmt.Sprintf("earnings:summary:%d:%s", creatorID, period)
}

// InvalidateEarnings drops every cached summary for a creator. Called after
// any earning mutation so summaries never serve stale balances for long.
func (s *CacheService) InvalidateEarnings(ctx context.Context, creatorID uint) error {
	pattern := fmt.Sprintf("earnings:summary:%d:*", creatorID)
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return s.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Event dedup fast path

func eventKey(eventID string) string {
	return fmt.Sprintf("event:seen:%s", eventID)
}

// MarkEventSeen records an event id and its processing result with a TTL.
// Best effort; the durable processed-event table is the source of truth.
func (s *CacheService) MarkEventSeen(ctx context.Context, eventID, result string, ttl time.Duration) error {
	return s.client.Set(ctx, eventKey(eventID), result, ttl).Err()
}

// EventSeen returns the recorded result for a recently processed event id,
// or ok=false when the id is unknown to the cache.
func (s *CacheService) EventSeen(ctx context.Context, eventID string) (result string, ok bool, err error) {
	result, err = s.client.Get(ctx, eventKey(eventID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return result, true, nil
}

// HealthCheck pings Redis.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// FlushAll clears the cache. Used on startup so stale summaries never
// survive a deploy.
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close releases the underlying Redis connection.
func (s *CacheService) Close() error {
	return s.client.Close()
}

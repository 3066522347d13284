package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CacheService wraps Redis with JSON serialization. A nil *CacheService is
// valid and turns every operation into a no-op miss, so callers don't have
// to branch on whether Redis is configured.
type CacheService struct {
	client *redis.Client
}

var errCacheDisabled = fmt.Errorf("cache disabled")

func NewCacheService(client *redis.Client) *CacheService {
	if client == nil {
		return nil
	}
	return &CacheService{
		client: client,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if s == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	if err := s.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to write cache key: %w", err)
	}

	return nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if s == nil {
		return errCacheDisabled
	}

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("cache miss")
		}
		return fmt.Errorf("failed to read cache key: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to decode cached value: %w", err)
	}

	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

func (s *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	if s == nil {
		return false, nil
	}
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to probe cache key: %w", err)
	}
	return val > 0, nil
}

// Key builders shared by the handlers and services.
func PlayersCacheKey(position string) string {
	if position == "" {
		position = "all"
	}
	return fmt.Sprintf("players:%s", position)
}

func PlayerCacheKey(playerID uint) string {
	return fmt.Sprintf("player:%d", playerID)
}

func GameweeksCacheKey() string {
	return "gameweeks"
}

func SuggestionCacheKey(paramsHash string) string {
	return fmt.Sprintf("suggestion:%s", paramsHash)
}

func TransferTargetsCacheKey(budget, topN int) string {
	return fmt.Sprintf("transfers:targets:%d:%d", budget, topN)
}

// SetWithRetry retries transient set failures with linear backoff.
func (s *CacheService) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error {
	if s == nil {
		return nil
	}
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = s.Set(ctx, key, value, expiration); err == nil {
			return nil
		}
		logrus.Warnf("Cache write failed (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Millisecond * 100 * time.Duration(i+1))
	}
	return err
}

// Context-free variants for call sites that have none.
func (s *CacheService) SetSimple(key string, value interface{}, expiration time.Duration) error {
	return s.Set(context.Background(), key, value, expiration)
}

func (s *CacheService) GetSimple(key string, dest interface{}) error {
	return s.Get(context.Background(), key, dest)
}

// Flush drops everything in the current Redis DB.
func (s *CacheService) Flush() error {
	if s == nil {
		return nil
	}
	return s.client.FlushDB(context.Background()).Err()
}

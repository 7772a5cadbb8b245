package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"shopmetrics-catalog/internal/models"
)

// RedisCache keeps recent upstream responses so rapid re-browsing does not
// hammer the remote API. Every method works on a nil receiver: when redis
// is unreachable the service simply runs uncached.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	ctx    context.Context
}

// NewRedisCache connects to redis and returns nil when the connection
// cannot be established.
func NewRedisCache(redisURL string, db, ttlSeconds int) *RedisCache {
	if redisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Failed to parse Redis URL: %v", err)
		return nil
	}
	opt.DB = db

	client := redis.NewClient(opt)
	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Redis connection failed: %v", err)
		return nil
	}

	log.Printf("Redis connected, DB: %d, TTL: %d seconds", db, ttlSeconds)

	return &RedisCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		ctx:    ctx,
	}
}

// ListingKey builds the cache key for a product listing fetch. An empty
// query is the unfiltered catalog.
func (r *RedisCache) ListingKey(query string) string {
	if query == "" {
		return "listing:all"
	}
	return fmt.Sprintf("listing:q:%s", query)
}

// SuggestKey builds the cache key for a suggestion fetch.
func (r *RedisCache) SuggestKey(query string) string {
	return fmt.Sprintf("suggest:%s", query)
}

// GetProducts returns the cached raw collection for key, or (nil, nil) on
// a cache miss.
func (r *RedisCache) GetProducts(key string) ([]models.RawProduct, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	val, err := r.client.Get(r.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %v", err)
	}

	var products []models.RawProduct
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %v", err)
	}

	return products, nil
}

func (r *RedisCache) SetProducts(key string, products []models.RawProduct) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not available")
	}

	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("json marshal error: %v", err)
	}

	return r.client.Set(r.ctx, key, data, r.ttl).Err()
}

// GetSuggestions returns cached suggestions, or (nil, nil) on a miss.
func (r *RedisCache) GetSuggestions(key string) ([]string, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	val, err := r.client.Get(r.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %v", err)
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(val), &suggestions); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %v", err)
	}

	return suggestions, nil
}

func (r *RedisCache) SetSuggestions(key string, suggestions []string) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not available")
	}

	data, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("json marshal error: %v", err)
	}

	return r.client.Set(r.ctx, key, data, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *RedisCache) IsAvailable() bool {
	return r != nil && r.client != nil
}

func (r *RedisCache) GetStats() map[string]interface{} {
	if r == nil || r.client == nil {
		return map[string]interface{}{
			"status": "unavailable",
		}
	}

	info := r.client.Info(r.ctx, "memory").Val()
	return map[string]interface{}{
		"status":      "connected",
		"ttl_seconds": int(r.ttl.Seconds()),
		"memory_info": info,
	}
}

func (r *RedisCache) FlushCache() error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not available")
	}
	return r.client.FlushDB(r.ctx).Err()
}

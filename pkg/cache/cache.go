package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ha1tch/tabgraph/pkg/models"
)

// ErrMiss is returned when a key is not cached
var ErrMiss = errors.New("key not found")

// Cache stores conversion results keyed by source digest
type Cache interface {
	Get(ctx context.Context, key string) (*models.Graph, error)
	Set(ctx context.Context, key string, g *models.Graph, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryCache implements an in-memory LRU cache with TTL
type MemoryCache struct {
	cache *lru.LRU[string, *models.Graph]
	mu    sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache. Entries expire after ttl;
// the per-call ttl of Set is ignored.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: lru.NewLRU[string, *models.Graph](size, nil, ttl),
	}
}

// Get retrieves a graph from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) (*models.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return g, nil
}

// Set stores a graph in the cache
func (m *MemoryCache) Set(ctx context.Context, key string, g *models.Graph, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Add(key, g)
	return nil
}

// Delete removes a key from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Remove(key)
	return nil
}

// Len returns the number of cached graphs
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cache.Len()
}

// Close empties the cache
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Purge()
	return nil
}

// RedisCache implements a Redis-backed cache
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(host string, port int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing Redis client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "tabgraph:graph:",
		ttl:    ttl,
	}
}

// Get retrieves a graph from Redis
func (r *RedisCache) Get(ctx context.Context, key string) (*models.Graph, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var g models.Graph
	if err := json.Unmarshal(val, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Set stores a graph in Redis
func (r *RedisCache) Set(ctx context.Context, key string, g *models.Graph, ttl time.Duration) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}

	if ttl == 0 {
		ttl = r.ttl
	}

	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}

// Delete removes a key from Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

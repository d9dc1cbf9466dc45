package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	appConfig "github.com/kendall-kelly/studio-ledger-api/config"
)

// CommissionCachePrefix namespaces commission summaries in Redis
const CommissionCachePrefix = "commission_summary:"

// CommissionCache stores computed commission summaries per artist and range
type CommissionCache interface {
	Get(ctx context.Context, artistID uint, from, to string) (*CommissionSummary, bool)
	Set(ctx context.Context, summary *CommissionSummary)
	InvalidateArtist(ctx context.Context, artistID uint)
}

var commissionCacheInstance CommissionCache = noopCommissionCache{}

// InitCommissionCache connects to Redis when REDIS_ADDR is set; otherwise caching is disabled
func InitCommissionCache() (CommissionCache, error) {
	cfg := appConfig.GetConfig()
	if cfg.Redis.Addr == "" {
		log.Printf("[cache] REDIS_ADDR not set, commission cache disabled")
		commissionCacheInstance = noopCommissionCache{}
		return commissionCacheInstance, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Printf("[cache] redis connected at %s", cfg.Redis.Addr)

	commissionCacheInstance = NewRedisCommissionCache(client, cfg.Redis.CacheTTL)
	return commissionCacheInstance, nil
}

// GetCommissionCache returns the process-wide commission cache
func GetCommissionCache() CommissionCache {
	return commissionCacheInstance
}

// SetCommissionCache sets the commission cache instance (primarily for testing)
func SetCommissionCache(cache CommissionCache) {
	if cache == nil {
		cache = noopCommissionCache{}
	}
	commissionCacheInstance = cache
}

// RedisCommissionCache keeps summaries as JSON under commission_summary:{artist}:{from}:{to}
type RedisCommissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCommissionCache wraps an existing Redis client
func NewRedisCommissionCache(client *redis.Client, ttl time.Duration) *RedisCommissionCache {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisCommissionCache{client: client, ttl: ttl}
}

func commissionCacheKey(artistID uint, from, to string) string {
	return fmt.Sprintf("%s%d:%s:%s", CommissionCachePrefix, artistID, from, to)
}

// Get returns a cached summary. Redis errors are logged and reported as a miss.
func (c *RedisCommissionCache) Get(ctx context.Context, artistID uint, from, to string) (*CommissionSummary, bool) {
	val, err := c.client.Get(ctx, commissionCacheKey(artistID, from, to)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] redis error on GET: %v. Falling back to DB.", err)
		}
		return nil, false
	}

	var summary CommissionSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		log.Printf("[cache] discarding unreadable commission cache entry: %v", err)
		return nil, false
	}
	return &summary, true
}

// Set stores a summary for the cache TTL
func (c *RedisCommissionCache) Set(ctx context.Context, summary *CommissionSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		log.Printf("[cache] failed to encode commission summary: %v", err)
		return
	}
	key := commissionCacheKey(summary.ArtistID, summary.From, summary.To)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[cache] failed to set cache for key %s: %v", key, err)
	}
}

// InvalidateArtist drops every cached range for the artist
func (c *RedisCommissionCache) InvalidateArtist(ctx context.Context, artistID uint) {
	pattern := fmt.Sprintf("%s%d:*", CommissionCachePrefix, artistID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("[cache] failed to scan commission cache for artist %d: %v", artistID, err)
		return
	}
	if len(keys) > 0 {
		_ = c.client.Del(ctx, keys...)
	}
}

type noopCommissionCache struct{}

func (noopCommissionCache) Get(context.Context, uint, string, string) (*CommissionSummary, bool) {
	return nil, false
}
func (noopCommissionCache) Set(context.Context, *CommissionSummary) {}
func (noopCommissionCache) InvalidateArtist(context.Context, uint) {}

// MockCommissionCache is an in-memory CommissionCache for testing
type MockCommissionCache struct {
	entries     map[string]*CommissionSummary
	invalidated []uint
	mu          sync.RWMutex
}

// NewMockCommissionCache creates an empty mock cache
func NewMockCommissionCache() *MockCommissionCache {
	return &MockCommissionCache{entries: make(map[string]*CommissionSummary)}
}

// SetAsMockForTesting sets this mock as the global commission cache
func (m *MockCommissionCache) SetAsMockForTesting() {
	SetCommissionCache(m)
}

// Get returns a stored summary
func (m *MockCommissionCache) Get(_ context.Context, artistID uint, from, to string) (*CommissionSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary, ok := m.entries[commissionCacheKey(artistID, from, to)]
	return summary, ok
}

// Set stores a summary
func (m *MockCommissionCache) Set(_ context.Context, summary *CommissionSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[commissionCacheKey(summary.ArtistID, summary.From, summary.To)] = summary
}

// InvalidateArtist drops the artist's entries and remembers the call
func (m *MockCommissionCache) InvalidateArtist(_ context.Context, artistID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := fmt.Sprintf("%s%d:", CommissionCachePrefix, artistID)
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.invalidated = append(m.invalidated, artistID)
}

// Invalidated returns the artist ids passed to InvalidateArtist (for testing assertions)
func (m *MockCommissionCache) Invalidated() []uint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]uint(nil), m.invalidated...)
}

// Len returns the number of cached summaries
func (m *MockCommissionCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

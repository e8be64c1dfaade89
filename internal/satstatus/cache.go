package satstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultTTL is how long a status stays cached.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "cfdi-status-"

// CacheKey is the cache key of uuid.
func CacheKey(uuid string) string {
	return keyPrefix + uuid
}

// Cache stores statuses by key.
type Cache interface {
	Get(ctx context.Context, key string) (Status, bool, error)
	Set(ctx context.Context, key string, status Status, ttl time.Duration) error
}

type memoryEntry struct {
	status  Status
	expires time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Cache. Expired entries are evicted on read.
func (c *MemoryCache) Get(_ context.Context, key string) (Status, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Status{}, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return Status{}, false, nil
	}
	return e.status, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, status Status, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{status: status, expires: c.now().Add(ttl)}
	return nil
}

// redisKV is the subset of *redis.Client the cache uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache stores statuses as JSON in Redis with SET EX.
type RedisCache struct {
	client redisKV
}

// NewRedisCache wraps a Redis client.
func NewRedisCache(client redisKV) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisClient connects to url and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (Status, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, false, nil
	}
	if err != nil {
		return Status{}, false, fmt.Errorf("redis get: %w", err)
	}
	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return Status{}, false, fmt.Errorf("decode cached status: %w", err)
	}
	return s, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, status Status, ttl time.Duration) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// CachedChecker consults the cache before the remote checker and writes
// definitive answers back.
type CachedChecker struct {
	remote Checker
	cache  Cache
	ttl    time.Duration
	logger logging.Logger
}

// NewCachedChecker wraps remote with cache. A zero ttl selects DefaultTTL.
func NewCachedChecker(remote Checker, cache Cache, ttl time.Duration, logger logging.Logger) *CachedChecker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &CachedChecker{remote: remote, cache: cache, ttl: ttl, logger: logging.OrDefault(logger)}
}

// Check implements Checker. Cache failures fall through to the remote call.
func (c *CachedChecker) Check(ctx context.Context, uuid, issuerRFC, receiverRFC string, total decimal.Decimal) (Status, error) {
	key := CacheKey(uuid)
	status, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.Field{Key: logging.FieldUUID, Value: uuid}).Warn("Status cache read failed")
	}
	if ok {
		status.Cached = true
		return status, nil
	}

	status, err = c.remote.Check(ctx, uuid, issuerRFC, receiverRFC, total)
	if err != nil {
		return Status{}, err
	}
	if err := c.cache.Set(ctx, key, status, c.ttl); err != nil {
		c.logger.WithError(err).WithFields(logging.Field{Key: logging.FieldUUID, Value: uuid}).Warn("Status cache write failed")
	}
	return status, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fcc-shorturl/internal/domain"
	"fcc-shorturl/internal/metrics"
	"fcc-shorturl/internal/repository"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shorturl:id:"

// Client is the subset of *redis.Client the cache needs
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// CachedRepository decorates a URLRepository with a Redis read-through cache
// for lookups by short id. This implements the CACHE-ASIDE PATTERN:
// 1. Check cache first
// 2. If miss, ask the wrapped repository
// 3. Store positive results for next time
//
// Cache failures are logged and fall through to the repository; they never fail a call.
// Only Update can change what an id points to, so it invalidates both affected ids.
type CachedRepository struct {
	repository.URLRepository

	client Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository wraps next with a cache backed by client
func NewCachedRepository(next repository.URLRepository, client Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	return &CachedRepository{
		URLRepository: next,
		client:        client,
		ttl:           ttl,
		logger:        logger,
	}
}

// FindByShortID serves from cache when possible
func (c *CachedRepository) FindByShortID(ctx context.Context, shortID int64) (*domain.URLRecord, bool, error) {
	if record, err := c.get(ctx, shortID); err != nil {
		c.logger.Warn("cache read failed", "short_id", shortID, "error", err)
	} else if record != nil {
		return record, true, nil
	}

	record, found, err := c.URLRepository.FindByShortID(ctx, shortID)
	if err != nil || !found {
		return record, found, err
	}

	if err := c.set(ctx, record); err != nil {
		c.logger.Warn("cache write failed", "short_id", shortID, "error", err)
	}

	return record, true, nil
}

// Update writes through and drops the cached entries for the old and new id
func (c *CachedRepository) Update(ctx context.Context, record *domain.URLRecord) error {
	previous, found, err := c.URLRepository.FindByOriginalURL(ctx, record.OriginalURL)
	if err != nil {
		return err
	}

	if err := c.URLRepository.Update(ctx, record); err != nil {
		return err
	}

	ids := []int64{record.ShortID}
	if found && previous.ShortID != record.ShortID {
		ids = append(ids, previous.ShortID)
	}
	if err := c.delete(ctx, ids...); err != nil {
		c.logger.Warn("cache invalidation failed", "short_ids", ids, "error", err)
	}

	return nil
}

// Close closes the wrapped repository and the Redis client
func (c *CachedRepository) Close() error {
	return errors.Join(c.URLRepository.Close(), c.client.Close())
}

func (c *CachedRepository) get(ctx context.Context, shortID int64) (*domain.URLRecord, error) {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	data, err := c.client.Get(ctx, cacheKey(shortID)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	metrics.RecordCacheHit()

	var record domain.URLRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached record: %w", err)
	}
	return &record, nil
}

func (c *CachedRepository) set(ctx context.Context, record *domain.URLRecord) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	}()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(record.ShortID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (c *CachedRepository) delete(ctx context.Context, shortIDs ...int64) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	}()

	keys := make([]string, 0, len(shortIDs))
	for _, id := range shortIDs {
		keys = append(keys, cacheKey(id))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

func cacheKey(shortID int64) string {
	return keyPrefix + strconv.FormatInt(shortID, 10)
}

// InitRedis creates a new Redis client and checks the connection
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool settings
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
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

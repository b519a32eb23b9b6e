package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nexus6Mx/see/internal/domain"
)

const cacheKeyPrefix = "bridge:client:"

// Cache stores bridge lookups in Redis with a bounded lifetime. Expiry is
// enforced twice: by the Redis TTL and by the entry's own expires_at, so a
// stale entry is never served even if the TTL drifts.
type Cache struct {
	rdb *goredis.Client
	ttl time.Duration
	now func() time.Time
}

func NewCache(rdb *goredis.Client, ttl time.Duration) (*Cache, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Cache{rdb: rdb, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) Get(ctx context.Context, orderNumber string) (*domain.ClientRecord, error) {
	raw, err := c.rdb.Get(ctx, cacheKeyPrefix+orderNumber).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache read failed: %w", err)
	}

	var entry domain.ClientCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}

	if entry.Expired(c.now().UTC()) {
		return nil, domain.ErrNotFound
	}

	return &entry.Client, nil
}

func (c *Cache) Set(ctx context.Context, orderNumber string, record *domain.ClientRecord) error {
	now := c.now().UTC()
	entry := domain.ClientCacheEntry{
		Client:    *record,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.rdb.Set(ctx, cacheKeyPrefix+orderNumber, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, orderNumber string) error {
	return c.rdb.Del(ctx, cacheKeyPrefix+orderNumber).Err()
}

// Lookup is the read-through composition of cache and bridge client used
// by template-variable assembly.
type Lookup struct {
	upstream ClientGetter
	cache    *Cache
	logger   *zap.Logger
}

func NewLookup(upstream ClientGetter, cache *Cache, logger *zap.Logger) (*Lookup, error) {
	if upstream == nil {
		return nil, fmt.Errorf("bridge client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Lookup{upstream: upstream, cache: cache, logger: logger}, nil
}

func (l *Lookup) GetClientByOrder(ctx context.Context, orderNumber string) (*domain.ClientRecord, error) {
	if l.cache != nil {
		record, err := l.cache.Get(ctx, orderNumber)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			// Cache trouble is not a lookup failure.
			l.logger.Warn("client cache read failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		}
	}

	record, err := l.upstream.GetClientByOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, orderNumber, record); err != nil {
			l.logger.Warn("client cache write failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		}
	}

	return record, nil
}

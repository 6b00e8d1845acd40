package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	auth "github.com/goliatone/go-role-auth"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a lockout record stays cached
const DefaultTTL = 30 * time.Second

// noRecord marks a role known to have no lockout
const noRecord = "none"

// LockoutCache is an auth.LockoutStore that keeps lockout records in redis
// in front of another store. Redis failures fall through to the inner store.
type LockoutCache struct {
	client redis.Cmdable
	inner  auth.LockoutStore
	ttl    time.Duration
	logger auth.Logger
}

type cachedLockout struct {
	TotalBlock bool  `json:"total_block"`
	UnblockAt  int64 `json:"unblock_at"`
}

// NewRedisClient creates a redis client for addr
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}

// NewLockoutCache wraps inner. A ttl <= 0 uses DefaultTTL.
func NewLockoutCache(client redis.Cmdable, inner auth.LockoutStore, ttl time.Duration, logger auth.Logger) *LockoutCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = auth.NewSlogLogger(nil)
	}
	return &LockoutCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		logger: logger,
	}
}

// FindLockout implements auth.LockoutStore
func (c *LockoutCache) FindLockout(ctx context.Context, role auth.Role) (*auth.LockoutRecord, error) {
	value, err := c.client.Get(ctx, Key(role)).Result()
	switch {
	case err == nil:
		if record, ok := decode(role, value); ok {
			return record, nil
		}
		c.logger.Warn("lockout cache entry unreadable", "role", role)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("lockout cache unavailable", "role", role, "error", err)
		return c.inner.FindLockout(ctx, role)
	}

	record, err := c.inner.FindLockout(ctx, role)
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, Key(role), encode(record), c.ttl).Err(); err != nil {
		c.logger.Warn("lockout cache write failed", "role", role, "error", err)
	}

	return record, nil
}

// Invalidate drops the cached entry of role
func (c *LockoutCache) Invalidate(ctx context.Context, role auth.Role) error {
	if err := c.client.Del(ctx, Key(role)).Err(); err != nil {
		return fmt.Errorf("invalidate lockout %s: %w", role, err)
	}
	return nil
}

// Key returns the redis key of the lockout of role
func Key(role auth.Role) string {
	return fmt.Sprintf("roleauth:lockout:%s", role)
}

func encode(record *auth.LockoutRecord) string {
	if record == nil {
		return noRecord
	}
	data, err := json.Marshal(cachedLockout{
		TotalBlock: record.TotalBlock,
		UnblockAt:  record.UnblockAtUnix,
	})
	if err != nil {
		return noRecord
	}
	return string(data)
}

func decode(role auth.Role, value string) (*auth.LockoutRecord, bool) {
	if value == noRecord {
		return nil, true
	}
	var cached cachedLockout
	if err := json.Unmarshal([]byte(value), &cached); err != nil {
		return nil, false
	}
	return &auth.LockoutRecord{
		Role:          role,
		TotalBlock:    cached.TotalBlock,
		UnblockAtUnix: cached.UnblockAt,
	}, true
}

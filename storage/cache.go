package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"lexiboard/domain"
)

type backend interface {
	LoadBoard(ctx context.Context, userID string) (*domain.Snapshot, error)
	SaveBoard(ctx context.Context, userID string, b domain.Board) error
	ClearBoard(ctx context.Context, userID string) error
}

// Cache wraps a backend store with a Redis read-through cache of the encoded board.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// A nil client or zero TTL disables caching.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) LoadBoard(ctx context.Context, userID string) (*domain.Snapshot, error) {
	if snap, ok := c.loadFromCache(ctx, userID); ok {
		return snap, nil
	}
	snap, err := c.base.LoadBoard(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Absent boards are not cached so the seed is never pinned.
	if snap != nil {
		c.store(ctx, userID, snap)
	}
	return snap, nil
}

func (c *Cache) SaveBoard(ctx context.Context, userID string, b domain.Board) error {
	err := c.base.SaveBoard(ctx, userID, b)
	c.evict(ctx, userID)
	return err
}

func (c *Cache) ClearBoard(ctx context.Context, userID string) error {
	err := c.base.ClearBoard(ctx, userID)
	c.evict(ctx, userID)
	return err
}

func (c *Cache) loadFromCache(ctx context.Context, userID string) (*domain.Snapshot, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, cacheKey(userID)).Err()
		}
		return nil, false
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		_ = c.redis.Del(ctx, cacheKey(userID)).Err()
		return nil, false
	}
	return snap, true
}

func (c *Cache) store(ctx context.Context, userID string, snap *domain.Snapshot) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(snap)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, cacheKey(userID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, cacheKey(userID)).Err()
}

func cacheKey(userID string) string {
	return "board-cache:" + userID
}

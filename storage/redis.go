package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lexiboard/domain"
)

// RedisStore keeps each user's board as a single JSON string under one key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on top of the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("storage.NewRedisStore: redis client is nil")
	}
	return &RedisStore{client: client}
}

// LoadBoard returns the persisted snapshot or nil when the user has none.
func (s *RedisStore) LoadBoard(ctx context.Context, userID string) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, boardKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return DecodeSnapshot(data)
}

// SaveBoard overwrites the user's board.
func (s *RedisStore) SaveBoard(ctx context.Context, userID string, b domain.Board) error {
	data, err := EncodeBoard(b)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	if err := s.client.Set(ctx, boardKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}

// ClearBoard removes all persisted state of the user.
func (s *RedisStore) ClearBoard(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, boardKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear board: %w", err)
	}
	return nil
}

func boardKey(userID string) string {
	return BoardKey + ":" + userID
}

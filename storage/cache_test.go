package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"lexiboard/domain"
)

type stubBackend struct {
	loadFn  func(ctx context.Context, userID string) (*domain.Snapshot, error)
	saveFn  func(ctx context.Context, userID string, b domain.Board) error
	clearFn func(ctx context.Context, userID string) error
}

func (s *stubBackend) LoadBoard(ctx context.Context, userID string) (*domain.Snapshot, error) {
	if s.loadFn == nil {
		return nil, errors.New("unexpected LoadBoard call")
	}
	return s.loadFn(ctx, userID)
}

func (s *stubBackend) SaveBoard(ctx context.Context, userID string, b domain.Board) error {
	if s.saveFn == nil {
		return errors.New("unexpected SaveBoard call")
	}
	return s.saveFn(ctx, userID, b)
}

func (s *stubBackend) ClearBoard(ctx context.Context, userID string) error {
	if s.clearFn == nil {
		return errors.New("unexpected ClearBoard call")
	}
	return s.clearFn(ctx, userID)
}

func TestCacheLoadMissThenHit(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubBackend{
		loadFn: func(ctx context.Context, uid string) (*domain.Snapshot, error) {
			calls++
			return &domain.Snapshot{Tasks: map[string]domain.Task{"t1": {ID: "t1"}}}, nil
		},
	}, client, time.Minute)

	if _, err := cache.LoadBoard(ctx, "u1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ttl := mr.TTL(cacheKey("u1")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
	snap, err := cache.LoadBoard(ctx, "u1")
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if _, ok := snap.Tasks["t1"]; !ok {
		t.Fatalf("unexpected cached snapshot: %+v", snap)
	}
	if calls != 1 {
		t.Fatalf("expected cached load to avoid backend, calls=%d", calls)
	}
}

func TestCacheDoesNotPinAbsentBoard(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(&stubBackend{
		loadFn: func(context.Context, string) (*domain.Snapshot, error) { return nil, nil },
	}, client, time.Minute)

	snap, err := cache.LoadBoard(context.Background(), "u1")
	if err != nil || snap != nil {
		t.Fatalf("expected absent board, got %+v, %v", snap, err)
	}
	if mr.Exists(cacheKey("u1")) {
		t.Fatalf("absent board must not be cached")
	}
}

func TestCacheSaveEvicts(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	fail := false
	var loads int
	cache := NewCache(&stubBackend{
		loadFn: func(context.Context, string) (*domain.Snapshot, error) {
			loads++
			return &domain.Snapshot{Tasks: map[string]domain.Task{"fresh": {ID: "fresh"}}}, nil
		},
		saveFn: func(context.Context, string, domain.Board) error {
			if fail {
				return errors.New("backend down")
			}
			return nil
		},
	}, client, time.Minute)
	if err := mr.Set(cacheKey("u1"), `{"tasks":{"stale":{"id":"stale"}}}`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := cache.SaveBoard(ctx, "u1", domain.DefaultSchema().SeedBoard()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mr.Exists(cacheKey("u1")) {
		t.Fatalf("expected cache eviction after save")
	}
	snap, err := cache.LoadBoard(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := snap.Tasks["fresh"]; !ok || loads != 1 {
		t.Fatalf("expected load from backend after save, loads=%d snap=%+v", loads, snap)
	}

	fail = true
	if err := cache.SaveBoard(ctx, "u1", domain.DefaultSchema().SeedBoard()); err == nil {
		t.Fatalf("expected backend error")
	}
	if mr.Exists(cacheKey("u1")) {
		t.Fatalf("expected cache eviction after failed save")
	}
}

func TestCacheClearEvicts(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	cache := NewCache(&stubBackend{
		clearFn: func(context.Context, string) error { return nil },
	}, client, time.Minute)
	if err := mr.Set(cacheKey("u1"), `{"tasks":{}}`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := cache.ClearBoard(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists(cacheKey("u1")) {
		t.Fatalf("expected cache entry to be removed")
	}
}

func TestCacheWithoutRedisDelegates(t *testing.T) {
	var calls int
	cache := NewCache(&stubBackend{
		loadFn: func(context.Context, string) (*domain.Snapshot, error) {
			calls++
			return &domain.Snapshot{}, nil
		},
	}, nil, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.LoadBoard(context.Background(), "u1"); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected every load to hit the backend, calls=%d", calls)
	}
}

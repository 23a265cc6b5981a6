package storage

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"lexiboard/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	snap, err := store.LoadBoard(ctx, "user-1")
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot for unknown user, got %+v", snap)
	}

	board := domain.DefaultSchema().SeedBoard()
	if err := store.SaveBoard(ctx, "user-1", board); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("lexiboard-pro:user-1") {
		t.Fatalf("expected board under the per-user key")
	}
	if ttl := mr.TTL("lexiboard-pro:user-1"); ttl != 0 {
		t.Fatalf("board must not expire, ttl=%v", ttl)
	}

	snap, err = store.LoadBoard(ctx, "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Tasks) != 4 || len(snap.Columns) != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if err := store.ClearBoard(ctx, "user-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("lexiboard-pro:user-1") {
		t.Fatalf("expected key to be removed")
	}
}

func TestRedisStoreMalformedBlob(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)
	if err := mr.Set("lexiboard-pro:user-1", "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := store.LoadBoard(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected malformed snapshot error")
	}
}

func TestRedisStoreUsersAreIsolated(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	if err := store.SaveBoard(ctx, "a", domain.DefaultSchema().SeedBoard()); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := store.LoadBoard(ctx, "b")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap != nil {
		t.Fatalf("user b must not see user a's board")
	}
}

package storage

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"lexiboard/domain"
)

type fakeTable struct {
	entities  map[string][]byte
	upsertErr error
	lastMode  aztables.UpdateMode
}

func newFakeTable() *fakeTable {
	return &fakeTable{entities: map[string][]byte{}}
}

func notFound() error {
	return &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}
}

func (f *fakeTable) GetEntity(ctx context.Context, pk, rk string, _ *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	v, ok := f.entities[pk+"/"+rk]
	if !ok {
		return aztables.GetEntityResponse{}, notFound()
	}
	return aztables.GetEntityResponse{Value: v}, nil
}

func (f *fakeTable) UpsertEntity(ctx context.Context, entity []byte, o *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error) {
	if f.upsertErr != nil {
		return aztables.UpsertEntityResponse{}, f.upsertErr
	}
	var keys struct {
		PartitionKey string `json:"PartitionKey"`
		RowKey       string `json:"RowKey"`
	}
	if err := sonic.Unmarshal(entity, &keys); err != nil {
		return aztables.UpsertEntityResponse{}, err
	}
	if o != nil {
		f.lastMode = o.UpdateMode
	}
	f.entities[keys.PartitionKey+"/"+keys.RowKey] = entity
	return aztables.UpsertEntityResponse{}, nil
}

func (f *fakeTable) DeleteEntity(ctx context.Context, pk, rk string, _ *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	if _, ok := f.entities[pk+"/"+rk]; !ok {
		return aztables.DeleteEntityResponse{}, notFound()
	}
	delete(f.entities, pk+"/"+rk)
	return aztables.DeleteEntityResponse{}, nil
}

func TestTableStoreRoundTrip(t *testing.T) {
	ft := newFakeTable()
	store := &TableStore{table: ft}
	ctx := context.Background()

	snap, err := store.LoadBoard(ctx, "u1")
	if err != nil || snap != nil {
		t.Fatalf("expected absent board, got %+v, %v", snap, err)
	}

	if err := store.SaveBoard(ctx, "u1", domain.DefaultSchema().SeedBoard()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ft.lastMode != aztables.UpdateModeReplace {
		t.Fatalf("expected replace mode, got %v", ft.lastMode)
	}
	if _, ok := ft.entities["u1/board"]; !ok {
		t.Fatalf("expected entity keyed by user and board row")
	}

	snap, err = store.LoadBoard(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Tasks) != 4 {
		t.Fatalf("unexpected tasks: %d", len(snap.Tasks))
	}

	if err := store.ClearBoard(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.ClearBoard(ctx, "u1"); err != nil {
		t.Fatalf("clear of missing entity must succeed: %v", err)
	}
}

func TestTableStoreSaveErrors(t *testing.T) {
	ft := newFakeTable()
	ft.upsertErr = errors.New("quota exceeded")
	store := &TableStore{table: ft}

	err := store.SaveBoard(context.Background(), "u1", domain.DefaultSchema().SeedBoard())
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected wrapped upsert error, got %v", err)
	}
}

func TestTableStoreRejectsOversizedBoard(t *testing.T) {
	store := &TableStore{table: newFakeTable()}
	b := domain.DefaultSchema().SeedBoard()
	b = domain.AddTask(b, "col-1", domain.Task{ID: "big", Content: strings.Repeat("x", maxEntityDataBytes)})

	if err := store.SaveBoard(context.Background(), "u1", b); !errors.Is(err, errBoardTooLarge) {
		t.Fatalf("expected errBoardTooLarge, got %v", err)
	}
}

func TestTableStoreSizeLimitCountsUTF16(t *testing.T) {
	ft := newFakeTable()
	store := &TableStore{table: ft}
	b := domain.DefaultSchema().SeedBoard()
	// Under 64 KiB as UTF-8, over it once stored as UTF-16.
	b = domain.AddTask(b, "col-1", domain.Task{ID: "wide", Content: strings.Repeat("x", 40000)})

	if err := store.SaveBoard(context.Background(), "u1", b); !errors.Is(err, errBoardTooLarge) {
		t.Fatalf("expected errBoardTooLarge, got %v", err)
	}
	if len(ft.entities) != 0 {
		t.Fatalf("oversized board must not be upserted")
	}
}

func TestUTF16Size(t *testing.T) {
	cases := map[string]int{
		"":           0,
		"abc":        6,
		"é":          2,
		"日本":         4,
		"\U0001F600": 4,
	}
	for in, want := range cases {
		if got := utf16Size(in); got != want {
			t.Errorf("utf16Size(%q) = %d, want %d", in, got, want)
		}
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf16"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"lexiboard/domain"
)

const (
	boardRowKey = "board"
	// Azure Tables stores strings as UTF-16 and caps a property at 64 KiB.
	maxEntityDataBytes = 64 * 1024
)

var errBoardTooLarge = errors.New("board exceeds table entity size limit")

type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// TableStore keeps each user's board as one Azure Table entity.
type TableStore struct {
	table tableClient
}

type boardEntity struct {
	aztables.Entity
	Data string `json:"Data"`
}

// NewTableStore creates a TableStore from a storage connection string.
func NewTableStore(connStr, tableName string) (*TableStore, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableStore{table: svc.NewClient(tableName)}, nil
}

// LoadBoard returns the persisted snapshot or nil when the entity does not exist.
func (s *TableStore) LoadBoard(ctx context.Context, userID string) (*domain.Snapshot, error) {
	resp, err := s.table.GetEntity(ctx, userID, boardRowKey, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load board entity: %w", err)
	}
	var ent boardEntity
	if err := sonic.Unmarshal(resp.Value, &ent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if ent.Data == "" {
		return nil, nil
	}
	return DecodeSnapshot([]byte(ent.Data))
}

// SaveBoard replaces the board entity of the user.
func (s *TableStore) SaveBoard(ctx context.Context, userID string, b domain.Board) error {
	data, err := EncodeBoard(b)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	if n := utf16Size(string(data)); n > maxEntityDataBytes {
		return fmt.Errorf("%w: %d bytes", errBoardTooLarge, n)
	}
	payload, err := sonic.Marshal(map[string]any{
		"PartitionKey": userID,
		"RowKey":       boardRowKey,
		"Data":         string(data),
	})
	if err != nil {
		return fmt.Errorf("encode board entity: %w", err)
	}
	if _, err := s.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return fmt.Errorf("save board entity: %w", err)
	}
	return nil
}

// utf16Size is the number of bytes s occupies once stored as UTF-16.
func utf16Size(s string) int {
	units := 0
	for _, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
	}
	return units * 2
}

// ClearBoard deletes the board entity. A missing entity is not an error.
func (s *TableStore) ClearBoard(ctx context.Context, userID string) error {
	if _, err := s.table.DeleteEntity(ctx, userID, boardRowKey, nil); err != nil && !isNotFound(err) {
		return fmt.Errorf("clear board entity: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

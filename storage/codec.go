package storage

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"lexiboard/domain"
)

// ErrMalformedSnapshot is returned when a persisted blob is not a JSON object.
var ErrMalformedSnapshot = errors.New("malformed board snapshot")

// BoardKey is the storage key of a single-browser board. Stores
// namespace it per user.
const BoardKey = "lexiboard-pro"

// EncodeBoard serializes the whole board in its persisted layout.
func EncodeBoard(b domain.Board) ([]byte, error) {
	return sonic.Marshal(b)
}

// DecodeSnapshot reads the parts of a persisted board consumed on load. Fields
// are decoded one by one: a field with an unexpected shape is treated as absent
// instead of failing the whole load. Only a blob that is not a JSON object is
// reported as ErrMalformedSnapshot.
func DecodeSnapshot(data []byte) (*domain.Snapshot, error) {
	var raw map[string]sonic.NoCopyRawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if raw == nil {
		return nil, ErrMalformedSnapshot
	}

	snap := &domain.Snapshot{}
	if msg, ok := raw["tasks"]; ok {
		var tasks map[string]domain.Task
		if err := sonic.Unmarshal(msg, &tasks); err == nil {
			snap.Tasks = tasks
		}
	}
	if msg, ok := raw["columns"]; ok {
		var cols map[string]sonic.NoCopyRawMessage
		if err := sonic.Unmarshal(msg, &cols); err == nil && cols != nil {
			snap.Columns = make(map[string]domain.SnapshotColumn, len(cols))
			for id, colMsg := range cols {
				var col domain.SnapshotColumn
				if err := sonic.Unmarshal(colMsg, &col); err != nil {
					continue
				}
				snap.Columns[id] = col
			}
		}
	}
	return snap, nil
}

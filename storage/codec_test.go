package storage

import (
	"errors"
	"reflect"
	"testing"

	"lexiboard/domain"
)

func TestDecodeSnapshot(t *testing.T) {
	data := []byte(`{
		"tasks": {"t1": {"id": "t1", "title": "one", "content": "**x**"}},
		"columns": {"col-1": {"id": "col-1", "title": "OLD", "taskIds": ["t1"]}},
		"columnOrder": ["col-9"]
	}`)

	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Tasks["t1"].Content != "**x**" {
		t.Fatalf("unexpected task: %+v", snap.Tasks["t1"])
	}
	if !reflect.DeepEqual(snap.Columns["col-1"].TaskIDs, []string{"t1"}) {
		t.Fatalf("unexpected column: %+v", snap.Columns["col-1"])
	}
}

func TestDecodeSnapshotFieldByField(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantTasks   bool
		wantColumns []string
	}{
		{name: "tasks wrong type", data: `{"tasks": [1,2], "columns": {"a": {"taskIds": ["x"]}}}`, wantColumns: []string{"a"}},
		{name: "tasks null", data: `{"tasks": null}`},
		{name: "one bad column", data: `{"tasks": {}, "columns": {"a": {"taskIds": "x"}, "b": {"taskIds": []}}}`, wantTasks: true, wantColumns: []string{"b"}},
		{name: "columns wrong type", data: `{"tasks": {}, "columns": 3}`, wantTasks: true},
		{name: "empty object", data: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := DecodeSnapshot([]byte(tt.data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if (snap.Tasks != nil) != tt.wantTasks {
				t.Fatalf("tasks present = %v, want %v", snap.Tasks != nil, tt.wantTasks)
			}
			if len(snap.Columns) != len(tt.wantColumns) {
				t.Fatalf("unexpected columns: %+v", snap.Columns)
			}
			for _, id := range tt.wantColumns {
				if _, ok := snap.Columns[id]; !ok {
					t.Fatalf("expected column %s", id)
				}
			}
		})
	}
}

func TestDecodeSnapshotMalformed(t *testing.T) {
	for _, data := range []string{`not json`, `[1,2]`, `null`, `"str"`} {
		if _, err := DecodeSnapshot([]byte(data)); !errors.Is(err, ErrMalformedSnapshot) {
			t.Fatalf("DecodeSnapshot(%s) err = %v, want ErrMalformedSnapshot", data, err)
		}
	}
}

func TestEncodeDecodeReconcilesToSameBoard(t *testing.T) {
	schema := domain.DefaultSchema()
	board := schema.SeedBoard()
	board = domain.AddTask(board, "col-2", domain.Task{ID: "task-7", Title: "seven"})

	data, err := EncodeBoard(board)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := domain.Reconcile(schema, snap); !reflect.DeepEqual(got, board) {
		t.Fatalf("reload changed the board:\n got %#v\nwant %#v", got, board)
	}
}

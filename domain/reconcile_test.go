package domain

import (
	"reflect"
	"testing"
)

func abcSchema() Schema {
	return Schema{
		Columns: []SchemaColumn{
			{ID: "A", Title: "Alpha", Seed: []string{"s1"}},
			{ID: "B", Title: "Beta"},
			{ID: "C", Title: "Gamma"},
		},
		SeedTasks: []Task{{ID: "s1", Title: "seed"}},
	}
}

func TestReconcileNilSnapshotIsSeed(t *testing.T) {
	b := Reconcile(abcSchema(), nil)

	if !reflect.DeepEqual(b.ColumnOrder, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected column order: %v", b.ColumnOrder)
	}
	if got := b.Columns["A"].TaskIDs; !reflect.DeepEqual(got, []string{"s1"}) {
		t.Fatalf("unexpected seed ids: %v", got)
	}
	if got := b.Columns["B"].TaskIDs; got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil ids for B, got %#v", got)
	}
	if _, ok := b.Tasks["s1"]; !ok {
		t.Fatalf("expected seed task to be present")
	}
}

func TestReconcileSchemaWinsOverPersistedColumns(t *testing.T) {
	snap := &Snapshot{
		Tasks: map[string]Task{
			"t1": {ID: "t1", Title: "one"},
			"t9": {ID: "t9", Title: "nine"},
		},
		Columns: map[string]SnapshotColumn{
			"A": {TaskIDs: []string{"t1"}},
			"B": {TaskIDs: []string{}},
			"Z": {TaskIDs: []string{"t9"}},
		},
	}

	b := Reconcile(abcSchema(), snap)

	if !reflect.DeepEqual(b.ColumnOrder, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected column order: %v", b.ColumnOrder)
	}
	if _, ok := b.Columns["Z"]; ok {
		t.Fatalf("column Z must not survive reconciliation")
	}
	if got := b.Columns["A"].TaskIDs; !reflect.DeepEqual(got, []string{"t1"}) {
		t.Fatalf("unexpected A ids: %v", got)
	}
	if got := b.Columns["C"].TaskIDs; got == nil || len(got) != 0 {
		t.Fatalf("expected empty ids for C, got %#v", got)
	}
	if b.Columns["A"].Title != "Alpha" {
		t.Fatalf("expected schema title, got %q", b.Columns["A"].Title)
	}
	if _, ok := b.Tasks["t9"]; !ok {
		t.Fatalf("orphaned task t9 must stay in tasks")
	}
	if _, ok := b.Tasks["s1"]; ok {
		t.Fatalf("seed tasks must not be mixed into persisted tasks")
	}
	if got := Orphans(b); !reflect.DeepEqual(got, []string{"t9"}) {
		t.Fatalf("unexpected orphans: %v", got)
	}
}

func TestReconcileMissingTasksFallsBackToSeed(t *testing.T) {
	snap := &Snapshot{Columns: map[string]SnapshotColumn{"A": {TaskIDs: []string{"s1"}}}}

	b := Reconcile(abcSchema(), snap)

	if _, ok := b.Tasks["s1"]; !ok {
		t.Fatalf("expected seed tasks when snapshot has none")
	}
	if got := b.Columns["B"].TaskIDs; len(got) != 0 {
		t.Fatalf("expected B to be empty, got %v", got)
	}
}

func TestReconcileDoesNotAliasSnapshot(t *testing.T) {
	ids := []string{"t1"}
	snap := &Snapshot{
		Tasks:   map[string]Task{"t1": {ID: "t1"}},
		Columns: map[string]SnapshotColumn{"A": {TaskIDs: ids}},
	}

	b := Reconcile(abcSchema(), snap)
	ids[0] = "mutated"
	snap.Tasks["t2"] = Task{ID: "t2"}

	if b.Columns["A"].TaskIDs[0] != "t1" {
		t.Fatalf("board shares task id slice with snapshot")
	}
	if _, ok := b.Tasks["t2"]; ok {
		t.Fatalf("board shares task map with snapshot")
	}
}

func TestDefaultSchemaSeedBoard(t *testing.T) {
	b := DefaultSchema().SeedBoard()

	if !reflect.DeepEqual(b.ColumnOrder, []string{"col-1", "col-2", "col-3"}) {
		t.Fatalf("unexpected order: %v", b.ColumnOrder)
	}
	if len(b.Tasks) != 4 {
		t.Fatalf("expected 4 seed tasks, got %d", len(b.Tasks))
	}
	if got := b.Columns["col-1"].TaskIDs; !reflect.DeepEqual(got, []string{"task-1", "task-2"}) {
		t.Fatalf("unexpected col-1 ids: %v", got)
	}
	if len(Orphans(b)) != 0 {
		t.Fatalf("seed board must not have orphans")
	}
}

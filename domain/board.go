package domain

import "sort"

// Column is an ordered bucket of task references. ID and Title come from the schema.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	TaskIDs []string `json:"taskIds"`
}

// Board is the full state of one user's board and also its persisted layout.
type Board struct {
	Tasks       map[string]Task   `json:"tasks"`
	Columns     map[string]Column `json:"columns"`
	ColumnOrder []string          `json:"columnOrder"`
}

// Task returns the task with the given id.
func (b Board) Task(id string) (Task, bool) {
	t, ok := b.Tasks[id]
	return t, ok
}

// ColumnOf returns the first column, in display order, that references taskID.
func (b Board) ColumnOf(taskID string) (Column, bool) {
	for _, id := range b.columnIDs() {
		col := b.Columns[id]
		if indexOf(col.TaskIDs, taskID) >= 0 {
			return col, true
		}
	}
	return Column{}, false
}

// OrderedColumns returns the columns listed in ColumnOrder, skipping unknown ids.
func (b Board) OrderedColumns() []Column {
	out := make([]Column, 0, len(b.ColumnOrder))
	for _, id := range b.ColumnOrder {
		if col, ok := b.Columns[id]; ok {
			out = append(out, col)
		}
	}
	return out
}

// TasksOf resolves the tasks of a column in display order. Dangling ids are skipped.
func (b Board) TasksOf(col Column) []Task {
	out := make([]Task, 0, len(col.TaskIDs))
	for _, id := range col.TaskIDs {
		if t, ok := b.Tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// columnIDs lists ColumnOrder first, then any column missing from it sorted by id,
// so lookups are deterministic even on inconsistent boards.
func (b Board) columnIDs() []string {
	ids := make([]string, 0, len(b.Columns))
	seen := make(map[string]struct{}, len(b.ColumnOrder))
	for _, id := range b.ColumnOrder {
		if _, ok := b.Columns[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	var rest []string
	for id := range b.Columns {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// withColumns returns a copy of b whose column map has the given columns replaced.
// Tasks and ColumnOrder are shared with b.
func (b Board) withColumns(cols ...Column) Board {
	next := make(map[string]Column, len(b.Columns)+len(cols))
	for id, c := range b.Columns {
		next[id] = c
	}
	for _, c := range cols {
		next[c.ID] = c
	}
	b.Columns = next
	return b
}

func (b Board) withTasks(tasks map[string]Task) Board {
	b.Tasks = tasks
	return b
}

func copyTasks(in map[string]Task, extra int) map[string]Task {
	out := make(map[string]Task, len(in)+extra)
	for id, t := range in {
		out[id] = t
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Snapshot is the part of a persisted board consumed on load. A nil Tasks map
// or a missing column entry means the value was absent.
type Snapshot struct {
	Tasks   map[string]Task           `json:"tasks"`
	Columns map[string]SnapshotColumn `json:"columns"`
}

// SnapshotColumn holds the persisted task order of one column.
type SnapshotColumn struct {
	TaskIDs []string `json:"taskIds"`
}

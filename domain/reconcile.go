package domain

import "sort"

// Reconcile merges the static schema with a previously persisted snapshot.
//
// Column identities, titles and order always come from the schema. Each column
// takes its task order from the snapshot when the snapshot has an entry for
// that column id, otherwise it starts empty. Tasks come from the snapshot when
// present, otherwise from the schema seed. A nil snapshot yields the seed board.
//
// Tasks that were only referenced by a column no longer in the schema stay in
// Tasks without any column pointing at them.
func Reconcile(schema Schema, snap *Snapshot) Board {
	b := Board{
		Columns:     make(map[string]Column, len(schema.Columns)),
		ColumnOrder: schema.ColumnOrder(),
	}

	if snap == nil {
		b.Tasks = schema.seedTasks()
		for _, c := range schema.Columns {
			b.Columns[c.ID] = Column{ID: c.ID, Title: c.Title, TaskIDs: cloneIDs(c.Seed)}
		}
		return b
	}

	if snap.Tasks != nil {
		b.Tasks = copyTasks(snap.Tasks, 0)
	} else {
		b.Tasks = schema.seedTasks()
	}
	for _, c := range schema.Columns {
		var ids []string
		if persisted, ok := snap.Columns[c.ID]; ok {
			ids = persisted.TaskIDs
		}
		b.Columns[c.ID] = Column{ID: c.ID, Title: c.Title, TaskIDs: cloneIDs(ids)}
	}
	return b
}

// Orphans returns the ids of tasks that no column references, sorted by id.
func Orphans(b Board) []string {
	referenced := make(map[string]struct{}, len(b.Tasks))
	for _, c := range b.Columns {
		for _, id := range c.TaskIDs {
			referenced[id] = struct{}{}
		}
	}
	var out []string
	for id := range b.Tasks {
		if _, ok := referenced[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

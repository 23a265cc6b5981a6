package domain

// SchemaColumn is a fixed column definition.
type SchemaColumn struct {
	ID    string
	Title string
	// Seed lists the ids of the seed tasks placed in this column on a fresh board.
	Seed []string
}

// Schema is the static board definition: column identities, titles, canonical
// order and the seed tasks of a fresh board.
type Schema struct {
	Columns   []SchemaColumn
	SeedTasks []Task
}

// HasColumn reports whether id names a schema column.
func (s Schema) HasColumn(id string) bool {
	for _, c := range s.Columns {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ColumnOrder returns the canonical column order.
func (s Schema) ColumnOrder() []string {
	order := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		order[i] = c.ID
	}
	return order
}

// SeedBoard returns a fresh board built only from the schema.
func (s Schema) SeedBoard() Board {
	return Reconcile(s, nil)
}

func (s Schema) seedTasks() map[string]Task {
	tasks := make(map[string]Task, len(s.SeedTasks))
	for _, t := range s.SeedTasks {
		tasks[t.ID] = t
	}
	return tasks
}

// DefaultSchema is the board shipped with the service.
func DefaultSchema() Schema {
	return Schema{
		Columns: []SchemaColumn{
			{ID: "col-1", Title: "IDEAS", Seed: []string{"task-1", "task-2"}},
			{ID: "col-2", Title: "IN PROGRESS", Seed: []string{"task-3"}},
			{ID: "col-3", Title: "DONE", Seed: []string{"task-4"}},
		},
		SeedTasks: []Task{
			{
				ID:      "task-1",
				Title:   "Welcome to Lexi.board",
				Content: "A **minimal** board built for clarity.\n\nUse it to organize thoughts, tasks or code snippets.",
			},
			{
				ID:      "task-2",
				Title:   "Markdown syntax",
				Content: "Notes support **Markdown**.\n\n- Hashes for headings\n- Double asterisks for bold\n- Dashes for lists\n\nOpen this card to edit it.",
			},
			{
				ID:      "task-3",
				Title:   "Fluid organization",
				Content: "Drag cards between columns to change their state.\n\nDrop a card on another card to place it right before it.",
			},
			{
				ID:      "task-4",
				Title:   "Automatic saving",
				Content: "There is no save button.\n\nEvery change is persisted immediately, so the board is still here when you come back.",
			},
		},
	}
}

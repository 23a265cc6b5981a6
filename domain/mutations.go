package domain

// AddTask inserts a task and appends its id to the column. The board is returned
// unchanged when the column does not exist.
func AddTask(b Board, columnID string, task Task) Board {
	col, ok := b.Columns[columnID]
	if !ok {
		return b
	}
	tasks := copyTasks(b.Tasks, 1)
	tasks[task.ID] = task

	ids := make([]string, 0, len(col.TaskIDs)+1)
	ids = append(ids, col.TaskIDs...)
	col.TaskIDs = append(ids, task.ID)

	return b.withTasks(tasks).withColumns(col)
}

// DeleteTask removes a task and scrubs its id from every column, not only the
// one owning it. The second result is false when nothing was removed.
func DeleteTask(b Board, taskID string) (Board, bool) {
	_, known := b.Tasks[taskID]
	var touched []Column
	for _, id := range b.columnIDs() {
		col := b.Columns[id]
		if indexOf(col.TaskIDs, taskID) < 0 {
			continue
		}
		kept := make([]string, 0, len(col.TaskIDs))
		for _, v := range col.TaskIDs {
			if v != taskID {
				kept = append(kept, v)
			}
		}
		col.TaskIDs = kept
		touched = append(touched, col)
	}
	if !known && len(touched) == 0 {
		return b, false
	}

	next := b
	if known {
		tasks := copyTasks(b.Tasks, 0)
		delete(tasks, taskID)
		next = next.withTasks(tasks)
	}
	if len(touched) > 0 {
		next = next.withColumns(touched...)
	}
	return next, true
}

// UpdateTask merges the patch into an existing task. Content is stored verbatim.
// The second result is false when the task is unknown.
func UpdateTask(b Board, taskID string, patch TaskPatch) (Board, bool) {
	t, ok := b.Tasks[taskID]
	if !ok {
		return b, false
	}
	tasks := copyTasks(b.Tasks, 0)
	tasks[taskID] = patch.apply(t)
	return b.withTasks(tasks), true
}

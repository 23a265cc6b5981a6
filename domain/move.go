package domain

// TargetKind tells what a drop target id resolved to.
type TargetKind int

const (
	// TargetNotFound means the id matched neither a task in any column nor a column.
	TargetNotFound TargetKind = iota
	// TargetTask means the pointer was over a task card.
	TargetTask
	// TargetColumn means the pointer was over the column itself.
	TargetColumn
)

func (k TargetKind) String() string {
	switch k {
	case TargetTask:
		return "task"
	case TargetColumn:
		return "column"
	default:
		return "not-found"
	}
}

// DropTarget is the resolved element under the pointer at the end of a drag.
// TaskID is set only for TargetTask.
type DropTarget struct {
	Kind     TargetKind
	ColumnID string
	TaskID   string
}

// ResolveDropTarget maps a drop target id to a task in some column or to a
// column. Columns are scanned in display order; for each column task
// membership is checked before the column id.
func ResolveDropTarget(b Board, overID string) DropTarget {
	if overID == "" {
		return DropTarget{}
	}
	for _, id := range b.columnIDs() {
		col := b.Columns[id]
		if indexOf(col.TaskIDs, overID) >= 0 {
			return DropTarget{Kind: TargetTask, ColumnID: col.ID, TaskID: overID}
		}
		if col.ID == overID {
			return DropTarget{Kind: TargetColumn, ColumnID: col.ID}
		}
	}
	return DropTarget{}
}

// MoveTask reorders the board after a drop of activeID onto overID.
//
// Inside one column the task is moved to the position of the target task, or to
// the end when dropped on the column itself. Across columns it is removed from
// its source and inserted right before the target task, or appended when the
// target is the column. An unresolvable source or target abandons the drop: the
// input board is returned as is and the second result is false.
func MoveTask(b Board, activeID, overID string) (Board, bool) {
	source, ok := b.ColumnOf(activeID)
	if !ok {
		return b, false
	}
	target := ResolveDropTarget(b, overID)
	if target.Kind == TargetNotFound {
		return b, false
	}

	if source.ID == target.ColumnID {
		from := indexOf(source.TaskIDs, activeID)
		to := len(source.TaskIDs) - 1
		if target.Kind == TargetTask {
			to = indexOf(source.TaskIDs, target.TaskID)
		}
		if from == to {
			return b, false
		}
		source.TaskIDs = arrayMove(source.TaskIDs, from, to)
		return b.withColumns(source), true
	}

	dest := b.Columns[target.ColumnID]

	drop := indexOf(source.TaskIDs, activeID)
	srcIDs := make([]string, 0, len(source.TaskIDs))
	srcIDs = append(srcIDs, source.TaskIDs[:drop]...)
	srcIDs = append(srcIDs, source.TaskIDs[drop+1:]...)

	at := len(dest.TaskIDs)
	if target.Kind == TargetTask {
		at = indexOf(dest.TaskIDs, target.TaskID)
	}
	destIDs := make([]string, 0, len(dest.TaskIDs)+1)
	destIDs = append(destIDs, dest.TaskIDs[:at]...)
	destIDs = append(destIDs, activeID)
	destIDs = append(destIDs, dest.TaskIDs[at:]...)

	source.TaskIDs = srcIDs
	dest.TaskIDs = destIDs
	return b.withColumns(source, dest), true
}

// arrayMove returns a copy of ids with the element at from moved to index to,
// keeping the relative order of every other element.
func arrayMove(ids []string, from, to int) []string {
	out := make([]string, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)

	moved := ids[from]
	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

package api

import "lexiboard/domain"

const maxBodySize = 64 * 1024 // 64 KiB

// POST /api/columns/:columnId/tasks request body. A missing title gets the
// default one.
type addTaskRequest struct {
	Title   *string `json:"title,omitempty"`
	Content string  `json:"content,omitempty"`
}

// PATCH /api/tasks/:taskId request body
type updateTaskRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// POST /api/preview request body
type previewRequest struct {
	Content string `json:"content"`
}

type previewResponse struct {
	HTML string `json:"html"`
}

// POST /api/drag/start request body
type dragStartRequest struct {
	TaskID string `json:"taskId"`
}

type dragStartResponse struct {
	Active bool      `json:"active"`
	Task   *cardView `json:"task,omitempty"`
}

// POST /api/drag/end request body. An empty overId means the card was dropped
// on nothing.
type dragEndRequest struct {
	ActiveID string `json:"activeId"`
	OverID   string `json:"overId"`
}

type dragEndResponse struct {
	Moved bool      `json:"moved"`
	Board boardView `json:"board"`
}

// POST /api/reset request body
type resetRequest struct {
	Confirm bool `json:"confirm"`
}

type taskResponse struct {
	Task  cardView  `json:"task"`
	Board boardView `json:"board"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type boardView struct {
	Columns      []columnView `json:"columns"`
	ActiveTaskID string       `json:"activeTaskId,omitempty"`
}

type columnView struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Count int        `json:"count"`
	Tasks []cardView `json:"tasks"`
}

type cardView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	DisplayTitle string `json:"displayTitle"`
	Excerpt      string `json:"excerpt"`
	Ref          string `json:"ref,omitempty"`
}

func newCardView(t domain.Task) cardView {
	return cardView{
		ID:           t.ID,
		Title:        t.Title,
		Content:      t.Content,
		DisplayTitle: domain.DisplayTitle(t.Title),
		Excerpt:      domain.Excerpt(t.Content),
		Ref:          domain.LogRef(t.ID),
	}
}

// newBoardView lists columns in display order. Ids without a task are skipped,
// so a column's count is the number of cards actually shown.
func newBoardView(b domain.Board, activeID string) boardView {
	cols := b.OrderedColumns()
	view := boardView{Columns: make([]columnView, 0, len(cols)), ActiveTaskID: activeID}
	for _, col := range cols {
		tasks := b.TasksOf(col)
		cards := make([]cardView, 0, len(tasks))
		for _, t := range tasks {
			cards = append(cards, newCardView(t))
		}
		view.Columns = append(view.Columns, columnView{ID: col.ID, Title: col.Title, Count: len(cards), Tasks: cards})
	}
	return view
}

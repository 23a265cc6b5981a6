package events

import (
	"context"
	"time"
)

// Board change event types.
const (
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskDeleted = "task-deleted"
	TaskMoved   = "task-moved"
	BoardReset  = "board-reset"
)

// UpdatesChannel is the Redis pub/sub channel board events are published on.
const UpdatesChannel = "board-updates"

// Event describes a committed change of one user's board.
type Event struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	TaskID   string `json:"taskId,omitempty"`
	ColumnID string `json:"columnId,omitempty"`
	Time     int64  `json:"time"`
}

// New stamps an event with the current time in milliseconds.
func New(typ, userID string) Event {
	return Event{Type: typ, UserID: userID, Time: time.Now().UnixMilli()}
}

// Publisher delivers board events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

package api

import (
	"context"

	"lexiboard/domain"
)

// BoardService is the board container the handlers forward user intents to.
type BoardService interface {
	Load(ctx context.Context, userID string) (domain.Board, error)
	AddTask(ctx context.Context, userID, columnID, title, content string) (domain.Task, domain.Board, error)
	UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, domain.Board, error)
	DeleteTask(ctx context.Context, userID, taskID string) (domain.Board, error)
	BeginDrag(ctx context.Context, userID, taskID string) (domain.Task, bool, error)
	ActiveTask(userID string) (string, bool)
	EndDrag(ctx context.Context, userID, activeID, overID string) (domain.Board, bool, error)
	Reset(ctx context.Context, userID string) (domain.Board, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents a task from being created twice for the same Idempotency-Key.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the creation fails.
	Remove(ctx context.Context, userID, key string) error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

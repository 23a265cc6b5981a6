// Package board owns the load, mutate and save lifecycle of users' boards.
package board

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	log "github.com/sirupsen/logrus"

	"lexiboard/domain"
	"lexiboard/events"
	"lexiboard/storage"
)

var (
	// ErrColumnNotFound is returned when a task is added to a column outside the schema.
	ErrColumnNotFound = errors.New("column not found")
	// ErrTaskNotFound is returned when updating a task that does not exist.
	ErrTaskNotFound = errors.New("task not found")
)

// DefaultTaskTitle is the title of a task created without one.
const DefaultTaskTitle = "New note"

const lockStripes = 64

// Store persists one board per user.
type Store interface {
	LoadBoard(ctx context.Context, userID string) (*domain.Snapshot, error)
	SaveBoard(ctx context.Context, userID string, b domain.Board) error
	ClearBoard(ctx context.Context, userID string) error
}

// Service is the explicit state container of the boards. Every operation loads
// the persisted board, reconciles it with the schema, applies the change and
// saves the whole board before returning. Operations on one user are serialized.
type Service struct {
	store     Store
	schema    domain.Schema
	ids       domain.IDGenerator
	publisher events.Publisher
	logger    *log.Logger

	locks [lockStripes]sync.Mutex

	dragMu   sync.Mutex
	dragging map[string]string
}

// Option customizes a Service.
type Option func(*Service)

// WithSchema replaces the default schema.
func WithSchema(schema domain.Schema) Option {
	return func(s *Service) { s.schema = schema }
}

// WithIDGenerator replaces the timestamp id generator.
func WithIDGenerator(ids domain.IDGenerator) Option {
	return func(s *Service) { s.ids = ids }
}

// WithPublisher sets where change events go after a successful save.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a Service with the default schema and no event publisher.
func NewService(store Store, logger *log.Logger, opts ...Option) *Service {
	if store == nil {
		panic("board.NewService: store is nil")
	}
	if logger == nil {
		panic("board.NewService: logger is nil")
	}
	s := &Service{
		store:     store,
		schema:    domain.DefaultSchema(),
		ids:       domain.NewTimestampIDs(),
		publisher: events.Nop{},
		logger:    logger,
		dragging:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns the static board definition in use.
func (s *Service) Schema() domain.Schema {
	return s.schema
}

// Load returns the user's reconciled board.
func (s *Service) Load(ctx context.Context, userID string) (domain.Board, error) {
	unlock := s.lock(userID)
	defer unlock()
	return s.load(ctx, userID)
}

// AddTask creates a task at the end of the column.
func (s *Service) AddTask(ctx context.Context, userID, columnID, title, content string) (domain.Task, domain.Board, error) {
	if !s.schema.HasColumn(columnID) {
		return domain.Task{}, domain.Board{}, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	task := domain.Task{ID: s.ids.NewID(), Title: title, Content: content}
	b, err := s.mutate(ctx, userID, func(cur domain.Board) (domain.Board, bool, error) {
		return domain.AddTask(cur, columnID, task), true, nil
	})
	if err != nil {
		return domain.Task{}, b, err
	}
	s.publish(ctx, events.Event{Type: events.TaskCreated, TaskID: task.ID, ColumnID: columnID}, userID)
	return task, b, nil
}

// UpdateTask merges the patch into an existing task.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, domain.Board, error) {
	b, err := s.mutate(ctx, userID, func(cur domain.Board) (domain.Board, bool, error) {
		next, ok := domain.UpdateTask(cur, taskID, patch)
		if !ok {
			return cur, false, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return next, !patch.Empty(), nil
	})
	if err != nil {
		return domain.Task{}, b, err
	}
	if !patch.Empty() {
		s.publish(ctx, events.Event{Type: events.TaskUpdated, TaskID: taskID}, userID)
	}
	task, _ := b.Task(taskID)
	return task, b, nil
}

// DeleteTask removes the task and every reference to it. Deleting an unknown
// task is a no-op.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) (domain.Board, error) {
	var removed bool
	b, err := s.mutate(ctx, userID, func(cur domain.Board) (domain.Board, bool, error) {
		next, ok := domain.DeleteTask(cur, taskID)
		removed = ok
		return next, ok, nil
	})
	if err != nil {
		return b, err
	}
	if removed {
		s.publish(ctx, events.Event{Type: events.TaskDeleted, TaskID: taskID}, userID)
	}
	return b, nil
}

// BeginDrag records taskID as the user's active drag for overlay feedback. The
// marker is transient and never persisted. An unknown task clears it.
func (s *Service) BeginDrag(ctx context.Context, userID, taskID string) (domain.Task, bool, error) {
	unlock := s.lock(userID)
	defer unlock()

	b, err := s.load(ctx, userID)
	if err != nil {
		return domain.Task{}, false, err
	}
	task, ok := b.Task(taskID)
	if !ok {
		s.clearDrag(userID)
		return domain.Task{}, false, nil
	}
	s.dragMu.Lock()
	s.dragging[userID] = taskID
	s.dragMu.Unlock()
	return task, true, nil
}

// ActiveTask returns the id of the task currently being dragged by the user.
func (s *Service) ActiveTask(userID string) (string, bool) {
	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	id, ok := s.dragging[userID]
	return id, ok
}

// EndDrag clears the drag marker and applies the drop. A drop on nothing or on
// an id that resolves to no column is abandoned silently; moved is false then.
func (s *Service) EndDrag(ctx context.Context, userID, activeID, overID string) (domain.Board, bool, error) {
	unlock := s.lock(userID)
	defer unlock()
	s.clearDrag(userID)

	var target domain.DropTarget
	var moved bool
	b, err := s.mutateLocked(ctx, userID, func(cur domain.Board) (domain.Board, bool, error) {
		target = domain.ResolveDropTarget(cur, overID)
		next, ok := domain.MoveTask(cur, activeID, overID)
		moved = ok
		return next, ok, nil
	})
	if err != nil {
		return b, false, err
	}
	if !moved {
		s.logger.WithFields(log.Fields{"user": userID, "active": activeID, "over": overID}).Debug("drop abandoned")
		return b, false, nil
	}
	s.publish(ctx, events.Event{Type: events.TaskMoved, TaskID: activeID, ColumnID: target.ColumnID}, userID)
	return b, true, nil
}

// Reset wipes the user's persisted board and returns the seed board.
func (s *Service) Reset(ctx context.Context, userID string) (domain.Board, error) {
	unlock := s.lock(userID)
	defer unlock()
	s.clearDrag(userID)

	if err := s.store.ClearBoard(ctx, userID); err != nil {
		return domain.Board{}, fmt.Errorf("reset board: %w", err)
	}
	s.logger.WithField("user", userID).Info("board reset")
	s.publish(ctx, events.Event{Type: events.BoardReset}, userID)
	return s.schema.SeedBoard(), nil
}

// mutate runs fn on the current board and saves the result when fn reports a
// change. On any error the persisted board is left as it was and the current
// board is returned.
func (s *Service) mutate(ctx context.Context, userID string, fn func(domain.Board) (domain.Board, bool, error)) (domain.Board, error) {
	unlock := s.lock(userID)
	defer unlock()
	return s.mutateLocked(ctx, userID, fn)
}

// mutateLocked is mutate for callers already holding the user's lock.
func (s *Service) mutateLocked(ctx context.Context, userID string, fn func(domain.Board) (domain.Board, bool, error)) (domain.Board, error) {
	cur, err := s.load(ctx, userID)
	if err != nil {
		return domain.Board{}, err
	}
	next, changed, err := fn(cur)
	if err != nil {
		return cur, err
	}
	if !changed {
		return cur, nil
	}
	if err := s.store.SaveBoard(ctx, userID, next); err != nil {
		s.logger.WithError(err).WithField("user", userID).Error("board save failed")
		return cur, fmt.Errorf("save board: %w", err)
	}
	return next, nil
}

func (s *Service) load(ctx context.Context, userID string) (domain.Board, error) {
	snap, err := s.store.LoadBoard(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrMalformedSnapshot) {
			return domain.Board{}, fmt.Errorf("load board: %w", err)
		}
		s.logger.WithError(err).WithField("user", userID).Warn("persisted board unreadable; using seed data")
		snap = nil
	}
	return domain.Reconcile(s.schema, snap), nil
}

func (s *Service) publish(ctx context.Context, ev events.Event, userID string) {
	stamped := events.New(ev.Type, userID)
	stamped.TaskID = ev.TaskID
	stamped.ColumnID = ev.ColumnID
	if err := s.publisher.Publish(ctx, stamped); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"user": userID, "event": ev.Type}).Warn("board event not published")
	}
}

// clearDrag drops the user's drag marker. Callers hold the user's lock, so a
// concurrent BeginDrag cannot set the marker again after it is cleared.
func (s *Service) clearDrag(userID string) {
	s.dragMu.Lock()
	delete(s.dragging, userID)
	s.dragMu.Unlock()
}

func (s *Service) lock(userID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"lexiboard/events"
)

// Hub fans board change notifications out to the open event streams of a user.
// It is an events.Publisher, so it can be fed in-process or from a Redis feed.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers a stream of the user. Notifications coalesce: a slow
// stream sees at most one pending signal.
func (h *Hub) Subscribe(userID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		h.subs[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, userID)
			}
		}
	}
}

func (h *Hub) Notify(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) Publish(_ context.Context, ev events.Event) error {
	h.Notify(ev.UserID)
	return nil
}

// Run notifies subscribers of every event read from feed until ctx is done or
// the feed closes.
func (h *Hub) Run(ctx context.Context, feed <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			h.Notify(ev.UserID)
		}
	}
}

func (h *Hub) subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

func (s *server) streamBoard(c echo.Context) error {
	userID, err := s.auth.UserIDFromAuthHeader(authHeader(c, true))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	}
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "stream unsupported"})
	}

	ch, unsubscribe := s.hub.Subscribe(userID)
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	logger := s.logger.WithField("user", userID)
	for {
		b, err := s.svc.Load(ctx, userID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.WithError(err).Error("stream: load board")
			return nil
		}
		active, _ := s.svc.ActiveTask(userID)
		data, err := sonic.Marshal(newBoardView(b, active))
		if err != nil {
			logger.WithError(err).Error("stream: encode board")
			return nil
		}
		if _, err := res.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
			logger.WithError(err).Debug("stream: client gone")
			return nil
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return nil
		case <-ch:
		}
	}
}

var _ events.Publisher = (*Hub)(nil)

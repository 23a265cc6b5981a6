package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"lexiboard/board"
	"lexiboard/domain"
)

// HeaderIdempotencyKey lets clients retry task creation safely.
const HeaderIdempotencyKey = "Idempotency-Key"

var (
	errInvalidBody       = errors.New("invalid body")
	errBodyTooLarge      = errors.New("body too large")
	errResetNotConfirmed = errors.New("reset requires confirmation")
	errDuplicateRequest  = errors.New("duplicate request")
)

var strictJSON = sonic.Config{
	EscapeHTML:            true,
	CopyString:            true,
	ValidateString:        true,
	DisallowUnknownFields: true,
}.Froze()

type server struct {
	svc      BoardService
	auth     Authenticator
	deduper  Deduper
	hub      *Hub
	health   HealthCheck
	markdown *Markdown
	logger   *log.Logger
}

// Register wires up all API routes on the provided Echo instance. deduper, hub
// and health are optional.
func Register(e *echo.Echo, svc BoardService, auth Authenticator, deduper Deduper, hub *Hub, health HealthCheck, logger *log.Logger) {
	if hub == nil {
		hub = NewHub()
	}
	s := &server{
		svc:      svc,
		auth:     auth,
		deduper:  deduper,
		hub:      hub,
		health:   health,
		markdown: NewMarkdown(),
		logger:   logger,
	}

	e.GET("/api/board", s.instrument("/api/board", s.getBoard))
	e.POST("/api/columns/:columnId/tasks", s.instrument("/api/columns/:columnId/tasks", s.addTask))
	e.PATCH("/api/tasks/:taskId", s.instrument("/api/tasks/:taskId", s.updateTask))
	e.DELETE("/api/tasks/:taskId", s.instrument("/api/tasks/:taskId", s.deleteTask))
	e.GET("/api/tasks/:taskId/preview", s.instrument("/api/tasks/:taskId/preview", s.taskPreview))
	e.POST("/api/preview", s.instrument("/api/preview", s.preview))
	e.POST("/api/drag/start", s.instrument("/api/drag/start", s.dragStart))
	e.POST("/api/drag/end", s.instrument("/api/drag/end", s.dragEnd))
	e.POST("/api/reset", s.instrument("/api/reset", s.reset))
	e.GET("/api/stream", s.streamBoard)
	e.GET("/healthz", s.healthz)
}

type instrumentedHandler func(c echo.Context, m *requestMetrics, userID string) error

// instrument authenticates the request and records one span and log line for it.
func (s *server) instrument(route string, h instrumentedHandler) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), s.logger, route)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			m.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := s.auth.UserIDFromAuthHeader(authHeader(c, false))
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
		}
		m.SetUser(userID)
		return h(c, m, userID)
	}
}

func (s *server) healthz(c echo.Context) error {
	if s.health == nil {
		return c.String(http.StatusOK, "ok")
	}
	if err := s.health(c.Request().Context()); err != nil {
		s.logger.WithError(err).Warn("health check failed")
		return c.String(http.StatusServiceUnavailable, "unavailable")
	}
	return c.String(http.StatusOK, "ok")
}

func (s *server) getBoard(c echo.Context, m *requestMetrics, userID string) error {
	start := time.Now()
	b, err := s.svc.Load(c.Request().Context(), userID)
	m.ObserveStore(time.Since(start))
	if err != nil {
		return s.fail(c, m, err)
	}
	active, _ := s.svc.ActiveTask(userID)
	return s.respondBoard(c, m, http.StatusOK, newBoardView(b, active))
}

func (s *server) addTask(c echo.Context, m *requestMetrics, userID string) error {
	var req addTaskRequest
	if err := decodeBody(c, &req, true); err != nil {
		return s.badRequest(c, m, err)
	}
	title := board.DefaultTaskTitle
	if req.Title != nil {
		title = *req.Title
	}

	ctx := c.Request().Context()
	key := c.Request().Header.Get(HeaderIdempotencyKey)
	recorded := false
	if key != "" && s.deduper != nil {
		added, err := s.deduper.Add(ctx, userID, key)
		if err != nil {
			m.SetErrorStage("dedupe")
			s.logger.WithError(err).WithField("user", userID).Error("idempotency check failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "idempotency check failed"})
		}
		if !added {
			m.SetErrorStage("duplicate")
			return c.JSON(http.StatusConflict, errorResponse{Error: errDuplicateRequest.Error()})
		}
		recorded = true
	}

	start := time.Now()
	task, b, err := s.svc.AddTask(ctx, userID, c.Param("columnId"), title, req.Content)
	m.ObserveStore(time.Since(start))
	if err != nil {
		if recorded {
			if rerr := s.deduper.Remove(ctx, userID, key); rerr != nil {
				s.logger.WithError(rerr).WithField("user", userID).Warn("idempotency key not released")
			}
		}
		return s.fail(c, m, err)
	}
	active, _ := s.svc.ActiveTask(userID)
	return s.respondTask(c, m, http.StatusCreated, task, b, active)
}

func (s *server) updateTask(c echo.Context, m *requestMetrics, userID string) error {
	var req updateTaskRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.badRequest(c, m, err)
	}
	start := time.Now()
	task, b, err := s.svc.UpdateTask(c.Request().Context(), userID, c.Param("taskId"), domain.TaskPatch{Title: req.Title, Content: req.Content})
	m.ObserveStore(time.Since(start))
	if err != nil {
		return s.fail(c, m, err)
	}
	active, _ := s.svc.ActiveTask(userID)
	return s.respondTask(c, m, http.StatusOK, task, b, active)
}

func (s *server) deleteTask(c echo.Context, m *requestMetrics, userID string) error {
	start := time.Now()
	b, err := s.svc.DeleteTask(c.Request().Context(), userID, c.Param("taskId"))
	m.ObserveStore(time.Since(start))
	if err != nil {
		return s.fail(c, m, err)
	}
	active, _ := s.svc.ActiveTask(userID)
	return s.respondBoard(c, m, http.StatusOK, newBoardView(b, active))
}

func (s *server) taskPreview(c echo.Context, m *requestMetrics, userID string) error {
	start := time.Now()
	b, err := s.svc.Load(c.Request().Context(), userID)
	m.ObserveStore(time.Since(start))
	if err != nil {
		return s.fail(c, m, err)
	}
	task, ok := b.Task(c.Param("taskId"))
	if !ok {
		return s.fail(c, m, board.ErrTaskNotFound)
	}
	return s.renderPreview(c, m, task.Content)
}

func (s *server) preview(c echo.Context, m *requestMetrics, _ string) error {
	var req previewRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.badRequest(c, m, err)
	}
	return s.renderPreview(c, m, req.Content)
}

func (s *server) renderPreview(c echo.Context, m *requestMetrics, content string) error {
	html, err := s.markdown.Render(content)
	if err != nil {
		m.SetErrorStage("render")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "render failed"})
	}
	return c.JSON(http.StatusOK, previewResponse{HTML: html})
}

func (s *server) dragStart(c echo.Context, m *requestMetrics, userID string) error {
	var req dragStartRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.badRequest(c, m, err)
	}
	task, ok, err := s.svc.BeginDrag(c.Request().Context(), userID, req.TaskID)
	if err != nil {
		return s.fail(c, m, err)
	}
	resp := dragStartResponse{Active: ok}
	if ok {
		card := newCardView(task)
		resp.Task = &card
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *server) dragEnd(c echo.Context, m *requestMetrics, userID string) error {
	var req dragEndRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.badRequest(c, m, err)
	}
	start := time.Now()
	b, moved, err := s.svc.EndDrag(c.Request().Context(), userID, req.ActiveID, req.OverID)
	m.ObserveStore(time.Since(start))
	if err != nil {
		return s.fail(c, m, err)
	}
	view := newBoardView(b, "")
	m.SetTasksReturned(countCards(view))
	return c.JSON(http.StatusOK, dragEndResponse{Moved: moved, Board: view})
}

func (s *server) reset(c echo.Context, m *requestMetrics, userID string) error {
	var req resetRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.badRequest(c, m, err)
	}
	if !req.Confirm {
		return s.badRequest(c, m, errResetNotConfirmed)
	}
	start := time.Now()
	b, err := s.svc.Reset(c.Request().Context(), userID)
	m.ObserveStore(time.Since(start))
	if err != nil {
		return s.fail(c, m, err)
	}
	return s.respondBoard(c, m, http.StatusOK, newBoardView(b, ""))
}

func (s *server) respondBoard(c echo.Context, m *requestMetrics, status int, view boardView) error {
	m.SetTasksReturned(countCards(view))
	start := time.Now()
	err := c.JSON(status, view)
	m.ObserveEncode(time.Since(start))
	if err != nil {
		m.SetErrorStage("encode_response")
	}
	return err
}

func (s *server) respondTask(c echo.Context, m *requestMetrics, status int, task domain.Task, b domain.Board, active string) error {
	view := newBoardView(b, active)
	m.SetTasksReturned(countCards(view))
	start := time.Now()
	err := c.JSON(status, taskResponse{Task: newCardView(task), Board: view})
	m.ObserveEncode(time.Since(start))
	if err != nil {
		m.SetErrorStage("encode_response")
	}
	return err
}

func (s *server) badRequest(c echo.Context, m *requestMetrics, err error) error {
	m.SetErrorStage("invalid_body")
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// fail maps board errors to responses. Anything unknown is a storage failure.
func (s *server) fail(c echo.Context, m *requestMetrics, err error) error {
	switch {
	case errors.Is(err, board.ErrColumnNotFound), errors.Is(err, board.ErrTaskNotFound):
		m.SetErrorStage("not_found")
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		m.SetErrorStage("storage")
		s.logger.WithError(err).WithField("route", c.Path()).Error("board request failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage failure"})
	}
}

// decodeBody strictly decodes a JSON body of at most maxBodySize bytes. When
// allowEmpty is set a missing body leaves v untouched.
func decodeBody(c echo.Context, v any, allowEmpty bool) error {
	body := c.Request().Body
	if body == nil {
		if allowEmpty {
			return nil
		}
		return errInvalidBody
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return errInvalidBody
	}
	if len(raw) > maxBodySize {
		return errBodyTooLarge
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if allowEmpty {
			return nil
		}
		return errInvalidBody
	}
	if err := strictJSON.Unmarshal(raw, v); err != nil {
		return errInvalidBody
	}
	return nil
}

func countCards(view boardView) int {
	n := 0
	for _, col := range view.Columns {
		n += col.Count
	}
	return n
}

package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/abhiarc/Dream-interpreter/internal/app"
	"github.com/abhiarc/Dream-interpreter/internal/domain"
	"github.com/abhiarc/Dream-interpreter/internal/ports"
	"github.com/abhiarc/Dream-interpreter/internal/version"
)

const (
	defaultWait = 30 * time.Second
	maxWait     = 2 * time.Minute
)

// Options tunes the HTTP surface.
type Options struct {
	// Warnings are standing configuration problems echoed in every session response.
	Warnings    []string
	SubmitRate  float64
	SubmitBurst int
}

type Handler struct {
	ctrl    *app.Controller
	library ports.Library
	store   sessions.Store
	opts    Options
	logger  *slog.Logger
}

func NewHandler(ctrl *app.Controller, library ports.Library, store sessions.Store, opts Options, logger *slog.Logger) *Handler {
	if opts.SubmitRate <= 0 {
		opts.SubmitRate = 0.5
	}
	if opts.SubmitBurst < 1 {
		opts.SubmitBurst = 3
	}
	return &Handler{ctrl: ctrl, library: library, store: store, opts: opts, logger: logger}
}

// NewEcho creates an echo instance with the service's common middleware.
// extra middleware runs after request ID and logging.
func NewEcho(logger *slog.Logger, extra ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(RequestIDMiddleware())
	e.Use(LoggingMiddleware(logger))
	e.Use(extra...)
	return e
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/version", h.Version)
	e.GET("/v1/library", h.Library)

	v1 := e.Group("/v1", SessionMiddleware(h.store, h.logger))
	v1.GET("/categories", h.Categories)
	v1.GET("/session", h.Session)
	v1.POST("/session/submit", h.Submit, SubmitRateLimiter(h.opts.SubmitRate, h.opts.SubmitBurst))
	v1.GET("/session/wait", h.Wait)
	v1.POST("/session/reset", h.Reset)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}

func (h *Handler) Categories(c echo.Context) error {
	ordered, err := h.ctrl.OrderedCategories(c.Request().Context(), currentSession(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, CategoriesResponse{Default: domain.General, Categories: ordered})
}

// Session is the poll step: it dispatches a pending request at most once and
// reports the current phase.
func (h *Handler) Session(c echo.Context) error {
	snap, err := h.ctrl.Poll(c.Request().Context(), currentSession(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return h.respond(c, http.StatusOK, snap)
}

func (h *Handler) Submit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		return h.mapError(c, err)
	}

	snap, err := h.ctrl.Submit(c.Request().Context(), currentSession(c), category, req.Dream)
	if err != nil {
		return h.mapError(c, err)
	}
	return h.respond(c, http.StatusAccepted, snap)
}

// Wait long-polls until the current request finishes or the timeout passes.
// A timeout is not an error: the snapshot simply still reads "generating".
func (h *Handler) Wait(c echo.Context) error {
	timeout := defaultWait
	if raw := c.QueryParam("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "timeout must be a positive duration"})
		}
		timeout = min(d, maxWait)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
	defer cancel()

	snap, err := h.ctrl.Wait(ctx, currentSession(c))
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return h.mapError(c, err)
	}
	return h.respond(c, http.StatusOK, snap)
}

func (h *Handler) Reset(c echo.Context) error {
	snap, err := h.ctrl.Reset(c.Request().Context(), currentSession(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return h.respond(c, http.StatusOK, snap)
}

func (h *Handler) Library(c echo.Context) error {
	ctx := c.Request().Context()
	raw := c.QueryParam("school")
	if raw == "" {
		entries, err := h.library.Entries(ctx)
		if err != nil {
			return h.mapError(c, err)
		}
		return c.JSON(http.StatusOK, LibraryResponse{Entries: entries})
	}

	category, err := domain.ParseCategory(raw)
	if err != nil {
		return h.mapError(c, err)
	}
	entry, err := h.library.Entry(ctx, category)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, LibraryResponse{Entries: []domain.LibraryEntry{entry}})
}

func (h *Handler) respond(c echo.Context, status int, snap app.Snapshot) error {
	requestID, _ := c.Get(ctxKeyRequestID).(string)
	return c.JSON(status, toSessionResponse(snap, h.opts.Warnings, requestID))
}

func currentSession(c echo.Context) uuid.UUID {
	id, _ := c.Get(ctxKeySessionID).(uuid.UUID)
	return id
}

func (h *Handler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyDream), errors.Is(err, domain.ErrUnknownCategory):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		h.logger.ErrorContext(c.Request().Context(), "internal error", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

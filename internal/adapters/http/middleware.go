package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/abhiarc/Dream-interpreter/internal/logging"
)

const (
	headerRequestID = "X-Request-Id"

	// SessionCookieName is the cookie carrying the caller's session.
	SessionCookieName = "dreamd-session"
	sessionKeyID      = "session_id"

	ctxKeyRequestID = "request_id"
	ctxKeySessionID = "session_id"
)

// RequestIDMiddleware ensures every request has a unique X-Request-Id and
// stores it on both the echo context and the request context.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, id)
			c.Set(ctxKeyRequestID, id)
			c.SetRequest(c.Request().WithContext(logging.WithRequestID(c.Request().Context(), id)))
			return next(c)
		}
	}
}

// LoggingMiddleware logs each request with structured fields.
func LoggingMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.InfoContext(c.Request().Context(), "request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// NewSessionStore creates the cookie store backing caller sessions.
func NewSessionStore(secret string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionMiddleware resolves the caller's session ID from the cookie,
// issuing a fresh one when the cookie is missing or unreadable.
func SessionMiddleware(store sessions.Store, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			session, err := store.Get(c.Request(), SessionCookieName)
			if err != nil {
				logger.DebugContext(ctx, "discarding unreadable session cookie", "error", err)
			}

			id, ok := sessionID(session)
			if !ok {
				id = uuid.New()
				session.Values[sessionKeyID] = id.String()
				if err := session.Save(c.Request(), c.Response().Writer); err != nil {
					return fmt.Errorf("save session: %w", err)
				}
				logger.DebugContext(ctx, "issued session", "session_id", id)
			}

			c.Set(ctxKeySessionID, id)
			return next(c)
		}
	}
}

func sessionID(session *sessions.Session) (uuid.UUID, bool) {
	raw, ok := session.Values[sessionKeyID].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// SubmitRateLimiter limits submissions per client IP with a token bucket.
func SubmitRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusForbidden, ErrorResponse{Error: "unable to identify client"})
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many submissions, try again shortly"})
		},
	})
}

// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance) and wires together the product media plugins.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
	"github.com/PROCLCGIT/pandora-sub000/internal/config"
	"github.com/PROCLCGIT/pandora-sub000/internal/middleware"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/media"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis caches scanned media paths. Nil when REDIS_URL is unset.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// janitor is built by RegisterRoutes; started by RunJanitor.
	janitor *media.Janitor
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, middleware.DefaultTrustedProxies)

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Echo:   e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())

	// Request id before logging so every log line carries it.
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(middleware.UserIdentity())
	a.Echo.Use(middleware.RequestLogger())

	a.Echo.Use(middleware.SecurityHeaders())
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{a.Config.BaseURL},
		AllowCredentials: true,
	}))
}

// errorResponse is the JSON body of every error.
type errorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) and Echo's own HTTP errors to the JSON error body.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	resp := errorResponse{
		Type:    apperror.TypeInternal,
		Message: "An unexpected error occurred",
	}
	code := http.StatusInternalServerError

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		resp.Type = appErr.Type
		resp.Message = appErr.Message

		// Log the underlying cause; the client only sees Message.
		if appErr.Internal != nil {
			slog.Error("request failed",
				slog.String("request_id", middleware.GetRequestID(c)),
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}

	case errors.As(err, &echoErr):
		code = echoErr.Code
		resp.Type = echoErrorType(code)
		if msg, ok := echoErr.Message.(string); ok {
			resp.Message = msg
		} else {
			resp.Message = http.StatusText(code)
		}

	default:
		slog.Error("unhandled error",
			slog.String("request_id", middleware.GetRequestID(c)),
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	resp.Error = http.StatusText(code)
	if c.Request().Method == http.MethodHead {
		c.NoContent(code)
		return
	}
	c.JSON(code, resp)
}

// echoErrorType classifies router and middleware errors.
func echoErrorType(code int) string {
	switch code {
	case http.StatusNotFound:
		return apperror.TypeNotFound
	case http.StatusRequestEntityTooLarge:
		return apperror.TypeValidation
	}
	if code < 500 {
		return apperror.TypeBadRequest
	}
	return apperror.TypeInternal
}

// RunJanitor sweeps orphaned media files until ctx is cancelled. It returns
// immediately when the janitor is disabled.
func (a *App) RunJanitor(ctx context.Context) {
	interval := a.Config.Media.JanitorInterval
	if a.janitor == nil || interval <= 0 {
		return
	}
	a.janitor.Run(ctx, interval)
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting media server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}

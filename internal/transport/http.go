package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/example/alertvoice/internal/protocol"
)

// Server is the Echo application exposing health, queue status, and
// audio retrieval (spec.md §6).
type Server struct {
	echo       *echo.Echo
	hub        *Hub
	dispatcher Dispatch
	cacheDir   string
}

// New constructs an Echo app with the overlay websocket and REST routes.
// cacheDir is the root the audio cache writes into (internal/ttscache);
// audio retrieval never escapes it.
func New(hub *Hub, dispatcher Dispatch, cacheDir string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, hub: hub, dispatcher: dispatcher, cacheDir: cacheDir}
	s.registerRoutes()
	return s
}

// requestLogger returns Echo middleware that logs each HTTP request via
// slog, quieting the high-frequency /ws and /health endpoints to debug.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			path := req.URL.Path
			fields := []any{
				"method", req.Method,
				"path", path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if path == "/ws" || path == "/health" {
				slog.Debug("http request", fields...)
			} else {
				slog.Info("http request", append(fields, "remote", c.RealIP())...)
			}
			return nil
		}
	}
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/api/queue", s.handleQueue)
	s.echo.POST("/api/queue/skip", s.handleQueueSkip)
	s.echo.POST("/api/queue/clear", s.handleQueueClear)
	s.echo.GET("/audio/:id", s.handleAudio)
	NewHandler(s.hub, s.dispatcher).Register(s.echo)
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("transport: shutting down http server")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		slog.Info("transport: http server stopped")
		return nil
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Clients: s.hub.ClientCount(),
	})
}

func (s *Server) handleQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, s.dispatcher.Snapshot())
}

type statusResponse struct {
	Status string `json:"status"`
}

// handleQueueSkip skips the in-flight message (spec.md §4.7's "skip
// command" dispatch-table transition).
func (s *Server) handleQueueSkip(c echo.Context) error {
	s.dispatcher.Skip()
	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

// handleQueueClear drains the pending queue without interrupting a
// PENDING message (spec.md §4.7's "clear command" dispatch-table
// transition).
func (s *Server) handleQueueClear(c echo.Context) error {
	s.dispatcher.Clear()
	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

// handleAudio serves a cached WAV artifact by its audio_id (the cache
// filename stem). audio_id is rejected if it contains a path separator
// or ".." before ever touching the filesystem (spec.md §6, §8 S8).
func (s *Server) handleAudio(c echo.Context) error {
	id := c.Param("id")
	if !validAudioID(id) {
		slog.Warn("transport: rejected audio_id", "audio_id", id)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	path := filepath.Join(s.cacheDir, id+".wav")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		slog.Error("transport: open audio artifact", "audio_id", id, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	defer f.Close()

	return c.Stream(http.StatusOK, protocol.AudioContentType, f)
}

// validAudioID rejects any id with path separators or traversal
// sequences, so a resolved path can never leave cacheDir (spec.md §6).
func validAudioID(id string) bool {
	if id == "" || id != filepath.Base(id) {
		return false
	}
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return false
	}
	return true
}

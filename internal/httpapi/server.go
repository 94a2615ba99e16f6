// Package httpapi exposes the sprint coordinator over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/metrics"
)

// DefaultHeartbeat is the interval of SSE keep-alive comments.
const DefaultHeartbeat = 15 * time.Second

const shutdownTimeout = 10 * time.Second

// Server serves the HTTP API from a container's use cases.
// Fields are ordered to minimize memory padding.
type Server struct {
	c         *app.Container
	auth      domain.Authenticator
	logger    *slog.Logger
	heartbeat time.Duration
	dev       bool
}

// New creates a Server for c.
func New(c *app.Container) *Server {
	return &Server{
		c:         c,
		auth:      c.Auth,
		logger:    c.Logger,
		heartbeat: DefaultHeartbeat,
		dev:       c.AppConfig.IsDevelopment(),
	}
}

// Handler builds the gin engine with every route.
func (s *Server) Handler() http.Handler {
	if !s.dev {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), instrument(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		ok(c, http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	api := r.Group("/", s.authenticate())

	api.GET("/projects", s.listProjects)
	api.POST("/projects", s.createProject)
	api.GET("/projects/:projectId", s.showProject)
	api.DELETE("/projects/:projectId", s.deleteProject)

	api.POST("/projects/:projectId/sprints", s.createSprint)
	api.GET("/projects/:projectId/sprints", s.listSprints)
	api.GET("/sprints/:sprintId", s.showSprint)
	api.PUT("/sprints/:sprintId", s.updateSprint)
	api.DELETE("/sprints/:sprintId", s.deleteSprint)
	api.POST("/sprints/:sprintId/recalculate-progress", s.recalculateProgress)
	api.POST("/sprints/:sprintId/tasks/:taskId", s.addTaskToSprint)
	api.DELETE("/sprints/:sprintId/tasks/:taskId", s.removeTaskFromSprint)

	api.POST("/projects/:projectId/tasks", s.createTask)
	api.POST("/projects/:projectId/tasks/import", s.importTasks)
	api.GET("/tasks/:taskId", s.showTask)
	api.PUT("/tasks/:taskId", s.updateTask)
	api.DELETE("/tasks/:taskId", s.deleteTask)

	api.GET("/rooms/:kind/:id/events", s.streamEvents)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

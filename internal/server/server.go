// Package server exposes an Orchestrator over HTTP. Jobs are submitted as
// plain-text job files or protocol job lines, and run progress is streamed
// to websocket clients as JSON events.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"github.com/piwi3910/bakery/internal/engine"
	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/project"
	"github.com/piwi3910/bakery/internal/protocol"
	"github.com/piwi3910/bakery/internal/worker"
)

// maxJobBytes caps the size of a submitted job body.
const maxJobBytes = 32 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithSettingsSaver registers a function called with the worker settings
// after every change made through the API.
func WithSettingsSaver(save func(model.WorkerSettings) error) Option {
	return func(s *Server) { s.save = save }
}

// WithOriginPatterns allows websocket clients from browser origins whose
// host matches one of the patterns (path.Match syntax). Without it only
// same-host origins are accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = patterns }
}

// Server serves the HTTP API of one Orchestrator.
type Server struct {
	o       *engine.Orchestrator
	log     logr.Logger
	save    func(model.WorkerSettings) error
	origins []string
	router  *gin.Engine
}

// New returns a Server for o with its routes registered.
func New(o *engine.Orchestrator, opts ...Option) *Server {
	s := &Server{o: o, log: logr.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithName("server")

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	api := r.Group("/api")
	api.GET("/workers", s.listWorkers)
	api.PUT("/workers/:name/enabled", s.setWorkerEnabled)
	api.GET("/timelimit", s.getTimeLimit)
	api.PUT("/timelimit", s.setTimeLimit)
	api.GET("/runs", s.listRuns)
	api.POST("/runs", s.createRun)
	api.GET("/runs/:id", s.getRun)
	api.GET("/runs/:id/result", s.getResult)
	api.GET("/runs/:id/sheets/:n/png", s.getSheetPNG)
	api.POST("/runs/:id/terminate", s.terminateRun)
	api.GET("/runs/:id/events", s.streamEvents)

	s.router = r
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("Server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logRequests logs every request at V(1), and failed ones at V(0).
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		kv := []any{"method", c.Request.Method, "path", c.FullPath(), "status", status, "latency", time.Since(start).String()}
		if status >= http.StatusInternalServerError {
			s.log.Info("Request failed", kv...)
			return
		}
		s.log.V(1).Info("Request", kv...)
	}
}

// fail writes err as a JSON error with a status derived from its kind.
func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownWorker), errors.Is(err, engine.ErrUnknownRun), errors.Is(err, errNoResult):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoWorkers), errors.Is(err, engine.ErrNoEnabledWorkers), errors.Is(err, worker.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, project.ErrInvalidJobFile), errors.Is(err, protocol.ErrCorruptData), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) persist() {
	if s.save == nil {
		return
	}
	if err := s.save(s.o.Settings()); err != nil {
		s.log.Error(err, "Failed to save worker settings")
	}
}

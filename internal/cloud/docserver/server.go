// Package docserver is a small in-memory document server speaking the same
// HTTP protocol as the cloud store. It backs `promptsync cloud serve` for
// local development and the cloud client's integration tests.
//
// Each bearer token is its own user; collections are never shared between
// tokens. Nothing is persisted.
package docserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server serves the document API from memory.
type Server struct {
	router *gin.Engine
	data   *memStore
	log    *zap.Logger

	// allowed restricts access to a fixed token set when non-empty.
	allowed map[string]bool

	upserted prometheus.Counter
	queries  prometheus.Counter
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithTokens only accepts the given bearer tokens; others get 403.
func WithTokens(tokens ...string) Option {
	return func(s *Server) {
		for _, t := range tokens {
			s.allowed[t] = true
		}
	}
}

// New builds a Server with its own metrics registry.
func New(opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	s := &Server{
		router:  gin.New(),
		data:    newMemStore(),
		log:     zap.NewNop(),
		allowed: make(map[string]bool),
		upserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "promptsync_docserver_upserted_documents_total",
			Help: "Documents written through batch upserts.",
		}),
		queries: factory.NewCounter(prometheus.CounterOpts{
			Name: "promptsync_docserver_queries_total",
			Help: "Range queries served.",
		}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(gin.Recovery(), s.logRequests())
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/v1", s.requireToken())
	// ":collection" also captures the ":batchUpsert" verb suffix.
	v1.POST("/collections/:collection", s.handleBatchUpsert)
	v1.GET("/collections/:collection", s.handleQuery)

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("document server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Package http provides HTTP server implementation and shared middleware.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/mediaplace/payments/internal/httputil"
)

// Options configures the API server router.
type Options struct {
	// Middlewares are applied after the built-in request-id, recovery and
	// logging middleware (CORS, rate limiting, metrics).
	Middlewares []gin.HandlerFunc
	// RegisterRoutes attaches feature handlers to the router.
	RegisterRoutes func(router *gin.Engine)
}

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server with the shared middleware chain.
func NewServer(host string, port int, logger *slog.Logger, opts Options) *Server {
	router := gin.New()

	// Non-matching methods on a known route must answer 405, not 404. The
	// webhook endpoint contract depends on this.
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Error:   "method_not_allowed",
			Message: "The HTTP method is not allowed for this resource",
		})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httputil.ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found",
		})
	})

	router.Use(requestid.New())
	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestLoggerMiddleware(logger))
	for _, mw := range opts.Middlewares {
		if mw != nil {
			router.Use(mw)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.RegisterRoutes != nil {
		opts.RegisterRoutes(router)
	}

	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

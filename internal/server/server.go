package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/gin-gonic/gin"
)

// StartOpts holds configuration for the local API server.
type StartOpts struct {
	Manager        *workflow.Manager
	Addr           string
	RequestTimeout time.Duration
	Out            io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Manager == nil {
		return fmt.Errorf("server: manager is required")
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8080"
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: NewRouter(opts.Manager, opts.RequestTimeout),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Storyboard API running at http://%s\n", opts.Addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the Gin engine with all API routes registered.
func NewRouter(m *workflow.Manager, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	registerRoutes(router, &handler{m: m, timeout: requestTimeout})
	return router
}

// requestLogger logs each request with slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
		)
	}
}

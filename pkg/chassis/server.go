// Package chassis runs the HTTP API and the MCP endpoint on a single TCP
// port. REST routes stay on the caller's mux; MCP is served over SSE under
// /mcp, so one listener covers both analyst tooling and agent access.
package chassis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

// Config holds configuration for the chassis server.
type Config struct {
	Addr      string            // TCP listen address (e.g. ":8080")
	Handler   http.Handler      // HTTP handler (mux with API routes)
	MCPServer *server.MCPServer // MCP server (nil = MCP disabled)
	Logger    *slog.Logger
}

// Server is the unified listener for REST and MCP traffic.
type Server struct {
	httpSrv *http.Server
	logger  *slog.Logger
	mcp     bool
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("chassis: nil HTTP handler")
	}

	root := cfg.Handler
	if cfg.MCPServer != nil {
		sse := server.NewSSEServer(cfg.MCPServer, server.WithStaticBasePath("/mcp"))
		apiHandler := cfg.Handler
		root = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/mcp") {
				sse.ServeHTTP(w, r)
				return
			}
			apiHandler.ServeHTTP(w, r)
		})
	}

	return &Server{
		httpSrv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           root,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: cfg.Logger,
		mcp:    cfg.MCPServer != nil,
	}, nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutCtx); err != nil {
			s.logger.Error("chassis shutdown", "error", err)
		}
	}()

	s.logger.Info("chassis started", "addr", s.httpSrv.Addr, "mcp", s.mcp)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http: %w", err)
	}
	s.logger.Info("chassis stopped")
	return nil
}

// Stop shuts the server down without waiting for ctx cancellation.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

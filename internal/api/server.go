// Package api provides the HTTP REST API.
//
// Endpoints:
//
//	POST   /api/v1/upload                       → accept a PDF for ingestion
//	GET    /api/v1/documents                    → list documents
//	GET    /api/v1/documents/{id}               → get one document
//	DELETE /api/v1/documents/{id}               → delete a document
//	POST   /api/v1/chat                         → ask a question over documents
//	GET    /api/v1/conversations                → list conversations
//	GET    /api/v1/conversations/{id}/messages  → conversation history
//	GET    /health                              → liveness probe
//	GET    /ready                               → readiness probe (DB ping)
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, request ID, logging, CORS
//   - ratelimit.go: per-IP token bucket rate limiting
//   - health.go: health check endpoints
//   - upload.go, documents.go, chat.go, conversations.go: resource handlers
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperstack/paperstack/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	// Uploads stream whole PDFs, so this is generous.
	ReadTimeout = 120 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Chat responses wait on a model completion.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger        log.Logger
	Uploader      uploadService       // Required
	Documents     documentService     // Required
	Chat          chatService         // Required
	Conversations conversationService // Required
	Pool          *pgxpool.Pool       // Optional: nil makes /ready report unavailable
	CORSOrigins   []string            // Allowed origins for CORS
	TrustProxy    bool                // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst     int                 // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Uploader == nil || cfg.Documents == nil || cfg.Chat == nil || cfg.Conversations == nil {
		return nil, errors.New("uploader, documents, chat, and conversations are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	NewUploadHandler(cfg.Uploader, logger).RegisterRoutes(mux)
	NewDocumentHandler(cfg.Documents, logger).RegisterRoutes(mux)
	NewChatHandler(cfg.Chat, logger).RegisterRoutes(mux)
	NewConversationHandler(cfg.Conversations, logger).RegisterRoutes(mux)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS headers.
	handler := chain(mux,
		recoveryMiddleware(logger),
		requestIDMiddleware(),
		loggingMiddleware(logger),
		corsMiddleware(cfg.CORSOrigins),
		rateLimitMiddleware(rl, cfg.TrustProxy, logger),
	)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack so
	// orchestrator probes never hit the rate limiter.
	topMux := http.NewServeMux()
	NewHealthHandler(cfg.Pool, logger).RegisterRoutes(topMux)
	topMux.Handle("/", final)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

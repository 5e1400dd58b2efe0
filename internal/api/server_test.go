package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/chat"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/ingest"
	"github.com/paperstack/paperstack/internal/log"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Logger: log.NewNop(),
		Uploader: &mockUploadService{
			uploadFn: func(context.Context, uuid.UUID, string, io.Reader) (*ingest.Result, error) {
				return &ingest.Result{Document: &document.Document{ID: uuid.New(), Status: document.StatusPending}}, nil
			},
		},
		Documents: &mockDocumentService{
			listFn: func(context.Context, uuid.UUID, int32, int32) ([]*document.Document, error) {
				return nil, nil
			},
			countFn: func(context.Context, uuid.UUID) (int64, error) { return 0, nil },
		},
		Chat: &mockChatService{
			askFn: func(context.Context, uuid.UUID, chat.Request) (*chat.Response, error) {
				return &chat.Response{Answer: "ok", ConversationID: uuid.New()}, nil
			},
		},
		Conversations: &mockConversationService{},
		RateBurst:     100,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(ServerConfig{Logger: log.NewNop()})
	if err == nil {
		t.Fatal("NewServer() without services should fail")
	}
}

func TestServer_Health(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestServer_ReadyWithoutPool(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /ready without pool status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", got, "DENY")
	}
}

func TestServer_RequestIDOnAPIRoutes(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))

	if got := w.Header().Get("X-Request-ID"); got == "" {
		t.Error("API responses should carry X-Request-ID")
	}
}

func TestServer_HealthBypassesRateLimit(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger: log.NewNop(),
		Uploader: &mockUploadService{
			uploadFn: func(context.Context, uuid.UUID, string, io.Reader) (*ingest.Result, error) {
				return nil, nil
			},
		},
		Documents: &mockDocumentService{
			listFn: func(context.Context, uuid.UUID, int32, int32) ([]*document.Document, error) {
				return nil, nil
			},
			countFn: func(context.Context, uuid.UUID) (int64, error) { return 0, nil },
		},
		Chat: &mockChatService{
			askFn: func(context.Context, uuid.UUID, chat.Request) (*chat.Response, error) {
				return nil, nil
			},
		},
		Conversations: &mockConversationService{},
		RateBurst:     1,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	// Exhaust the single-token burst on an API route
	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	r.RemoteAddr = "7.7.7.7:1000"
	srv.Handler().ServeHTTP(httptest.NewRecorder(), r)

	blocked := httptest.NewRecorder()
	srv.Handler().ServeHTTP(blocked, r)
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("API route status = %d, want %d", blocked.Code, http.StatusTooManyRequests)
	}

	probe := httptest.NewRequest(http.MethodGet, "/health", nil)
	probe.RemoteAddr = "7.7.7.7:1000"
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, probe)
	if w.Code != http.StatusOK {
		t.Fatalf("health probe status = %d, want %d (probes bypass the limiter)", w.Code, http.StatusOK)
	}
}

func TestServer_RunShutsDownOnCancel(t *testing.T) {
	srv := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() after cancel = %v, want nil", err)
	}
}

package mcp

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/paperstack/paperstack/internal/answer"
	"github.com/paperstack/paperstack/internal/chat"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/ingest"
	"github.com/paperstack/paperstack/internal/log"
)

type mockDocs struct {
	listFn         func(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*document.Document, error)
	listByStatusFn func(ctx context.Context, userID uuid.UUID, status string, limit, offset int32) ([]*document.Document, error)
}

func (m *mockDocs) List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*document.Document, error) {
	return m.listFn(ctx, userID, limit, offset)
}

func (m *mockDocs) ListByStatus(ctx context.Context, userID uuid.UUID, status string, limit, offset int32) ([]*document.Document, error) {
	return m.listByStatusFn(ctx, userID, status, limit, offset)
}

type mockUploader struct {
	uploadFn func(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*ingest.Result, error)
}

func (m *mockUploader) Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*ingest.Result, error) {
	return m.uploadFn(ctx, userID, filename, r)
}

type mockChat struct {
	askFn func(ctx context.Context, userID uuid.UUID, req chat.Request) (*chat.Response, error)
}

func (m *mockChat) Ask(ctx context.Context, userID uuid.UUID, req chat.Request) (*chat.Response, error) {
	return m.askFn(ctx, userID, req)
}

func newTestServer(t *testing.T, docs DocumentLister, uploader Uploader, ch Chat) *Server {
	t.Helper()
	if docs == nil {
		docs = &mockDocs{}
	}
	if uploader == nil {
		uploader = &mockUploader{}
	}
	if ch == nil {
		ch = &mockChat{}
	}
	s, err := NewServer(Config{
		Name:      "paperstack",
		Version:   "test",
		Logger:    log.NewNop(),
		Documents: docs,
		Uploader:  uploader,
		Chat:      ch,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s
}

func resultText(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("result content = %d items, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("result content type = %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestNewServer_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing name", Config{Version: "v", Documents: &mockDocs{}, Uploader: &mockUploader{}, Chat: &mockChat{}}},
		{"missing version", Config{Name: "n", Documents: &mockDocs{}, Uploader: &mockUploader{}, Chat: &mockChat{}}},
		{"missing services", Config{Name: "n", Version: "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Error("NewServer() should fail")
			}
		})
	}
}

func TestListDocs(t *testing.T) {
	docID := uuid.New()
	docs := &mockDocs{
		listFn: func(_ context.Context, userID uuid.UUID, limit, _ int32) ([]*document.Document, error) {
			if userID != uuid.MustParse(defaultUserID) {
				t.Errorf("List() userID = %s, want default user", userID)
			}
			if limit != listDocsLimit {
				t.Errorf("List() limit = %d, want %d", limit, listDocsLimit)
			}
			return []*document.Document{{
				ID:        docID,
				Filename:  "report.pdf",
				Status:    document.StatusReady,
				PageCount: 7,
				CreatedAt: time.Now().UTC(),
			}}, nil
		},
	}
	s := newTestServer(t, docs, nil, nil)

	res, _, err := s.ListDocs(context.Background(), nil, ListDocsInput{})
	if err != nil {
		t.Fatalf("ListDocs() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("ListDocs() returned error result: %s", resultText(t, res))
	}

	text := resultText(t, res)
	for _, want := range []string{docID.String(), "report.pdf", "ready", "Pages: 7"} {
		if !strings.Contains(text, want) {
			t.Errorf("list_docs output missing %q:\n%s", want, text)
		}
	}
}

func TestListDocs_StatusFilter(t *testing.T) {
	called := false
	docs := &mockDocs{
		listByStatusFn: func(_ context.Context, _ uuid.UUID, status string, _, _ int32) ([]*document.Document, error) {
			called = true
			if status != document.StatusReady {
				t.Errorf("ListByStatus() status = %q, want ready", status)
			}
			return nil, nil
		},
	}
	s := newTestServer(t, docs, nil, nil)

	res, _, err := s.ListDocs(context.Background(), nil, ListDocsInput{Status: "ready"})
	if err != nil {
		t.Fatalf("ListDocs() error = %v", err)
	}
	if !called {
		t.Error("ListByStatus() was not called")
	}
	if got := resultText(t, res); got != "No documents found." {
		t.Errorf("empty list output = %q", got)
	}
}

func TestListDocs_UnknownStatus(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	res, _, err := s.ListDocs(context.Background(), nil, ListDocsInput{Status: "bogus"})
	if err != nil {
		t.Fatalf("ListDocs() error = %v", err)
	}
	if !res.IsError {
		t.Error("unknown status should produce an error result")
	}
}

func TestAddDoc(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o600); err != nil {
		t.Fatal(err)
	}

	docID := uuid.New()
	uploader := &mockUploader{
		uploadFn: func(_ context.Context, _ uuid.UUID, filename string, r io.Reader) (*ingest.Result, error) {
			if filename != "paper.pdf" {
				t.Errorf("Upload() filename = %q, want paper.pdf", filename)
			}
			data, _ := io.ReadAll(r)
			if !strings.HasPrefix(string(data), "%PDF-") {
				t.Errorf("Upload() stream = %q", data)
			}
			return &ingest.Result{Document: &document.Document{
				ID:       docID,
				Filename: filename,
				Status:   document.StatusPending,
			}}, nil
		},
	}
	s := newTestServer(t, nil, uploader, nil)

	res, _, err := s.AddDoc(context.Background(), nil, AddDocInput{FilePath: path})
	if err != nil {
		t.Fatalf("AddDoc() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("AddDoc() returned error result: %s", resultText(t, res))
	}

	text := resultText(t, res)
	for _, want := range []string{"uploaded successfully", docID.String(), "pending"} {
		if !strings.Contains(text, want) {
			t.Errorf("add_doc output missing %q:\n%s", want, text)
		}
	}
}

func TestAddDoc_FileNotFound(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	res, _, err := s.AddDoc(context.Background(), nil, AddDocInput{FilePath: "/nonexistent/paper.pdf"})
	if err != nil {
		t.Fatalf("AddDoc() error = %v", err)
	}
	if !res.IsError {
		t.Fatal("missing file should produce an error result")
	}
	if got := resultText(t, res); !strings.Contains(got, "File not found") {
		t.Errorf("add_doc output = %q, want file-not-found message", got)
	}
}

func TestAddDoc_RejectedUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(path, []byte("plain text"), 0o600); err != nil {
		t.Fatal(err)
	}

	uploader := &mockUploader{
		uploadFn: func(context.Context, uuid.UUID, string, io.Reader) (*ingest.Result, error) {
			return nil, ingest.ErrNotPDF
		},
	}
	s := newTestServer(t, nil, uploader, nil)

	res, _, err := s.AddDoc(context.Background(), nil, AddDocInput{FilePath: path})
	if err != nil {
		t.Fatalf("AddDoc() error = %v", err)
	}
	if !res.IsError {
		t.Error("rejected upload should produce an error result")
	}
}

func TestChatWithDocs(t *testing.T) {
	docID := uuid.New()
	convID := uuid.New()
	ch := &mockChat{
		askFn: func(_ context.Context, _ uuid.UUID, req chat.Request) (*chat.Response, error) {
			if req.Question != "What is covered?" {
				t.Errorf("Ask() question = %q", req.Question)
			}
			if len(req.DocIDs) != 1 || req.DocIDs[0] != docID {
				t.Errorf("Ask() docIDs = %v", req.DocIDs)
			}
			return &chat.Response{
				Answer: "The warranty covers parts and labor [Source 1].",
				Citations: []answer.Citation{
					{Source: 1, DocID: docID, Filename: "warranty.pdf", PageStart: 2, PageEnd: 3, Snippet: "The warranty covers..."},
				},
				ConversationID: convID,
				Usage:          answer.Usage{PromptTokens: 80, CompletionTokens: 25, TotalTokens: 105},
				Grounded:       true,
			}, nil
		},
	}
	s := newTestServer(t, nil, nil, ch)

	res, _, err := s.ChatWithDocs(context.Background(), nil, ChatWithDocsInput{
		Question: "What is covered?",
		DocIDs:   []string{docID.String()},
	})
	if err != nil {
		t.Fatalf("ChatWithDocs() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("ChatWithDocs() returned error result: %s", resultText(t, res))
	}

	text := resultText(t, res)
	for _, want := range []string{"[Source 1]", "warranty.pdf", "(Pages 2-3)", "Tokens used: 105", convID.String()} {
		if !strings.Contains(text, want) {
			t.Errorf("chat_with_docs output missing %q:\n%s", want, text)
		}
	}
}

func TestChatWithDocs_DomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not ready", chat.ErrDocumentNotReady, "still processing"},
		{"not found", document.ErrNotFound, "document not found"},
		{"too many documents", chat.ErrTooManyDocuments, "too many documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChat{
				askFn: func(context.Context, uuid.UUID, chat.Request) (*chat.Response, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(t, nil, nil, ch)

			res, _, err := s.ChatWithDocs(context.Background(), nil, ChatWithDocsInput{
				Question: "anything",
				DocIDs:   []string{uuid.NewString()},
			})
			if err != nil {
				t.Fatalf("ChatWithDocs() error = %v", err)
			}
			if !res.IsError {
				t.Fatal("domain error should produce an error result")
			}
			if got := resultText(t, res); !strings.Contains(got, tt.want) {
				t.Errorf("output = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestChatWithDocs_InvalidDocID(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	res, _, err := s.ChatWithDocs(context.Background(), nil, ChatWithDocsInput{
		Question: "anything",
		DocIDs:   []string{"not-a-uuid"},
	})
	if err != nil {
		t.Fatalf("ChatWithDocs() error = %v", err)
	}
	if !res.IsError {
		t.Error("invalid doc id should produce an error result")
	}
}

// Package mcp implements a Model Context Protocol (MCP) server.
//
// The server exposes the document pipeline to MCP clients (Genkit CLI,
// Cursor, agent runtimes) as three tools:
//
//   - list_docs: list a user's documents with status filtering
//   - add_doc: upload a PDF from a local file path for ingestion
//   - chat_with_docs: ask a question grounded in selected documents
//
// Tool semantics match the HTTP API; handlers call the same domain
// services the HTTP handlers do. Input schemas are inferred from Go
// structs via jsonschema. Domain failures are reported as error results
// (IsError) so agent callers can read them; only infrastructure failures
// propagate as protocol errors.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/paperstack/paperstack/internal/chat"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/ingest"
	"github.com/paperstack/paperstack/internal/log"
)

// DocumentLister is the slice of document.Store the server needs.
type DocumentLister interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*document.Document, error)
	ListByStatus(ctx context.Context, userID uuid.UUID, status string, limit, offset int32) ([]*document.Document, error)
}

// Uploader is the slice of ingest.Uploader the server needs.
type Uploader interface {
	Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*ingest.Result, error)
}

// Chat is the slice of chat.Service the server needs.
type Chat interface {
	Ask(ctx context.Context, userID uuid.UUID, req chat.Request) (*chat.Response, error)
}

// Config holds MCP server configuration.
type Config struct {
	Name      string
	Version   string
	Logger    log.Logger
	Documents DocumentLister
	Uploader  Uploader
	Chat      Chat
}

// Server wraps the MCP SDK server and the document pipeline services.
type Server struct {
	mcpServer *mcp.Server
	docs      DocumentLister
	uploader  Uploader
	chat      Chat
	logger    log.Logger
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Documents == nil || cfg.Uploader == nil || cfg.Chat == nil {
		return nil, errors.New("documents, uploader, and chat are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		docs:      cfg.Documents,
		uploader:  cfg.Uploader,
		chat:      cfg.Chat,
		logger:    logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server on the given transport.
// This is a blocking call that handles all MCP protocol communication.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// registerTools registers all document pipeline tools to the MCP server.
func (s *Server) registerTools() error {
	listSchema, err := jsonschema.For[ListDocsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for list_docs: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "list_docs",
		Description: "List all documents for the given user. " +
			"Returns document metadata including ID, filename, status, and page count.",
		InputSchema: listSchema,
	}, s.ListDocs)

	addSchema, err := jsonschema.For[AddDocInput](nil)
	if err != nil {
		return fmt.Errorf("schema for add_doc: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "add_doc",
		Description: "Upload a new PDF document from a file path. " +
			"The document is processed asynchronously; poll list_docs for readiness.",
		InputSchema: addSchema,
	}, s.AddDoc)

	chatSchema, err := jsonschema.For[ChatWithDocsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for chat_with_docs: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "chat_with_docs",
		Description: "Ask a question grounded in selected documents. " +
			"Returns an answer with citations from the documents.",
		InputSchema: chatSchema,
	}, s.ChatWithDocs)

	return nil
}

// textResult builds a successful text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult builds an error tool result visible to the agent caller.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/paperstack/paperstack/internal/chat"
	"github.com/paperstack/paperstack/internal/conversation"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/ingest"
)

// listDocsLimit bounds the document listing for tool output.
const listDocsLimit = 100

// defaultUserID is assumed when a tool call carries no user_id.
const defaultUserID = "00000000-0000-0000-0000-000000000000"

// ListDocsInput defines the input schema for the list_docs tool.
type ListDocsInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"User ID (UUID format, optional)"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status: pending, processing, ready, failed, or all"`
}

// AddDocInput defines the input schema for the add_doc tool.
type AddDocInput struct {
	UserID   string `json:"user_id,omitempty" jsonschema:"User ID (UUID format, optional)"`
	FilePath string `json:"file_path" jsonschema:"Path to the PDF file to upload"`
}

// ChatWithDocsInput defines the input schema for the chat_with_docs tool.
type ChatWithDocsInput struct {
	UserID         string   `json:"user_id,omitempty" jsonschema:"User ID (UUID format, optional)"`
	Question       string   `json:"question" jsonschema:"The question to ask"`
	DocIDs         []string `json:"doc_ids" jsonschema:"List of document IDs to search (UUIDs)"`
	ConversationID string   `json:"conversation_id,omitempty" jsonschema:"Optional conversation ID to continue an existing conversation"`
}

// ListDocs handles the list_docs MCP tool call.
func (s *Server) ListDocs(ctx context.Context, _ *mcp.CallToolRequest, in ListDocsInput) (*mcp.CallToolResult, any, error) {
	userID, err := toolUserID(in.UserID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	var docs []*document.Document
	switch in.Status {
	case "", "all":
		docs, err = s.docs.List(ctx, userID, listDocsLimit, 0)
	case document.StatusPending, document.StatusProcessing, document.StatusReady, document.StatusFailed:
		docs, err = s.docs.ListByStatus(ctx, userID, in.Status, listDocsLimit, 0)
	default:
		return errorResult(fmt.Sprintf("Unknown status filter: %s", in.Status)), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		return textResult("No documents found."), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d document(s):\n\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&b, "- ID: %s\n", d.ID)
		fmt.Fprintf(&b, "  Filename: %s\n", d.Filename)
		fmt.Fprintf(&b, "  Status: %s\n", d.Status)
		if d.FailureStage != "" {
			fmt.Fprintf(&b, "  Failed at: %s\n", d.FailureStage)
		}
		fmt.Fprintf(&b, "  Pages: %d\n", d.PageCount)
		fmt.Fprintf(&b, "  Created: %s\n\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return textResult(b.String()), nil, nil
}

// AddDoc handles the add_doc MCP tool call.
func (s *Server) AddDoc(ctx context.Context, _ *mcp.CallToolRequest, in AddDocInput) (*mcp.CallToolResult, any, error) {
	userID, err := toolUserID(in.UserID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	if in.FilePath == "" {
		return errorResult("Error: file_path is required"), nil, nil
	}

	f, err := os.Open(in.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errorResult(fmt.Sprintf("Error: File not found: %s", in.FilePath)), nil, nil
		}
		return nil, nil, fmt.Errorf("opening %s: %w", in.FilePath, err)
	}
	defer f.Close()

	result, err := s.uploader.Upload(ctx, userID, filepath.Base(in.FilePath), f)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrNotPDF), errors.Is(err, ingest.ErrEmpty):
			return errorResult("Error: only non-empty PDF files are accepted"), nil, nil
		case errors.Is(err, ingest.ErrTooLarge):
			return errorResult("Error: file exceeds the upload size limit"), nil, nil
		case errors.Is(err, ingest.ErrQueueFull):
			return errorResult("Error: ingestion queue is full, retry later"), nil, nil
		default:
			return nil, nil, fmt.Errorf("uploading %s: %w", in.FilePath, err)
		}
	}

	doc := result.Document
	var b strings.Builder
	if result.Deduplicated {
		b.WriteString("Document already exists and is ready.\n\n")
	} else {
		b.WriteString("Document uploaded successfully!\n\n")
	}
	fmt.Fprintf(&b, "Document ID: %s\n", doc.ID)
	fmt.Fprintf(&b, "Filename: %s\n", doc.Filename)
	fmt.Fprintf(&b, "Status: %s\n", doc.Status)

	return textResult(b.String()), nil, nil
}

// ChatWithDocs handles the chat_with_docs MCP tool call.
func (s *Server) ChatWithDocs(ctx context.Context, _ *mcp.CallToolRequest, in ChatWithDocsInput) (*mcp.CallToolResult, any, error) {
	userID, err := toolUserID(in.UserID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	docIDs := make([]uuid.UUID, 0, len(in.DocIDs))
	for _, raw := range in.DocIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: invalid doc_ids entry: %s", raw)), nil, nil
		}
		docIDs = append(docIDs, id)
	}

	req := chat.Request{Question: in.Question, DocIDs: docIDs}
	if in.ConversationID != "" {
		convID, err := uuid.Parse(in.ConversationID)
		if err != nil {
			return errorResult("Error: invalid conversation_id"), nil, nil
		}
		req.ConversationID = &convID
	}

	resp, err := s.chat.Ask(ctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion),
			errors.Is(err, chat.ErrQuestionTooLong),
			errors.Is(err, chat.ErrTooManyDocuments):
			return errorResult("Error: " + err.Error()), nil, nil
		case errors.Is(err, chat.ErrDocumentNotReady):
			return errorResult("Error: document is still processing or failed"), nil, nil
		case errors.Is(err, document.ErrNotFound):
			return errorResult("Error: document not found"), nil, nil
		case errors.Is(err, conversation.ErrNotFound):
			return errorResult("Error: conversation not found"), nil, nil
		default:
			return nil, nil, fmt.Errorf("answering question: %w", err)
		}
	}

	var b strings.Builder
	b.WriteString(resp.Answer)
	b.WriteString("\n\n")

	if len(resp.Citations) > 0 {
		b.WriteString("---\nSources:\n")
		for i, c := range resp.Citations {
			fmt.Fprintf(&b, "\n%d. %s", i+1, c.Filename)
			if c.PageStart > 0 {
				if c.PageEnd > c.PageStart {
					fmt.Fprintf(&b, " (Pages %d-%d)", c.PageStart, c.PageEnd)
				} else {
					fmt.Fprintf(&b, " (Page %d)", c.PageStart)
				}
			}
			fmt.Fprintf(&b, "\n   %q\n", c.Snippet)
		}
	}

	fmt.Fprintf(&b, "\n---\nConversation: %s", resp.ConversationID)
	if resp.Usage.TotalTokens > 0 {
		fmt.Fprintf(&b, "\nTokens used: %d (prompt: %d, completion: %d)",
			resp.Usage.TotalTokens, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	return textResult(b.String()), nil, nil
}

// toolUserID parses a user_id argument, applying the default when empty.
func toolUserID(raw string) (uuid.UUID, error) {
	if raw == "" {
		raw = defaultUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("Error: invalid user_id: %s", raw)
	}
	return id, nil
}

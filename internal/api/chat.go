package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/answer"
	"github.com/paperstack/paperstack/internal/chat"
	"github.com/paperstack/paperstack/internal/conversation"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/log"
)

// chatService is the slice of chat.Service the handler needs.
type chatService interface {
	Ask(ctx context.Context, userID uuid.UUID, req chat.Request) (*chat.Response, error)
}

// ChatHandler handles the question answering endpoint.
type ChatHandler struct {
	chat   chatService
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat chatService, logger log.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", h.ask)
}

// ChatRequest is the request body for asking a question.
type ChatRequest struct {
	Question       string   `json:"question"`
	DocIDs         []string `json:"doc_ids"`
	ConversationID string   `json:"conversation_id,omitempty"`
	UserID         string   `json:"user_id,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
}

// TokenUsage reports provider token consumption for one answer.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the response body for an answered question.
type ChatResponse struct {
	Answer         string            `json:"answer"`
	Citations      []answer.Citation `json:"citations"`
	ConversationID string            `json:"conversation_id"`
	MessageID      string            `json:"message_id"`
	Grounded       bool              `json:"grounded"`
	TokenUsage     TokenUsage        `json:"token_usage"`
}

// ask handles POST /api/v1/chat.
//
// Answers a question grounded in the caller's selected documents. Every
// referenced document must exist, belong to the caller, and be ready.
func (h *ChatHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	userID, err := parseUserID(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	docIDs := make([]uuid.UUID, 0, len(req.DocIDs))
	for _, raw := range req.DocIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid doc_ids entry: "+raw)
			return
		}
		docIDs = append(docIDs, id)
	}

	ask := chat.Request{
		Question: req.Question,
		DocIDs:   docIDs,
		TopK:     req.TopK,
	}
	if req.ConversationID != "" {
		convID, err := uuid.Parse(req.ConversationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid conversation_id")
			return
		}
		ask.ConversationID = &convID
	}

	resp, err := h.chat.Ask(r.Context(), userID, ask)
	if err != nil {
		h.writeChatError(w, r, err)
		return
	}

	citations := resp.Citations
	if citations == nil {
		citations = []answer.Citation{}
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:         resp.Answer,
		Citations:      citations,
		ConversationID: resp.ConversationID.String(),
		MessageID:      resp.MessageID.String(),
		Grounded:       resp.Grounded,
		TokenUsage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	})
}

func (h *ChatHandler) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion),
		errors.Is(err, chat.ErrQuestionTooLong),
		errors.Is(err, chat.ErrTooManyDocuments):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, chat.ErrDocumentNotReady):
		writeError(w, http.StatusBadRequest, "document_not_ready", "document is still processing or failed")
	case errors.Is(err, document.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "document not found")
	case errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "conversation not found")
	default:
		h.logger.Error("chat request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to answer question")
	}
}

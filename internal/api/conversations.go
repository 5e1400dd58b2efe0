package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/answer"
	"github.com/paperstack/paperstack/internal/conversation"
	"github.com/paperstack/paperstack/internal/log"
)

// conversationService is the slice of conversation.Store the handler needs.
type conversationService interface {
	List(ctx context.Context, userID uuid.UUID) ([]*conversation.Conversation, error)
	Messages(ctx context.Context, userID, id uuid.UUID) ([]*conversation.Message, error)
}

// ConversationHandler handles conversation history endpoints.
type ConversationHandler struct {
	convs  conversationService
	logger log.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(convs conversationService, logger log.Logger) *ConversationHandler {
	return &ConversationHandler{convs: convs, logger: logger}
}

// RegisterRoutes registers conversation routes on the given mux.
func (h *ConversationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/conversations", h.list)
	mux.HandleFunc("GET /api/v1/conversations/{id}/messages", h.messages)
}

// ConversationResponse is the JSON shape of a conversation.
type ConversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageResponse is the JSON shape of one conversation turn.
type MessageResponse struct {
	ID         string            `json:"id"`
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	DocIDs     []string          `json:"doc_ids,omitempty"`
	Citations  []answer.Citation `json:"citations,omitempty"`
	TokenUsage *TokenUsage       `json:"token_usage,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// list returns the caller's conversations, newest first.
func (h *ConversationHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	convs, err := h.convs.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list conversations")
		return
	}

	out := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, ConversationResponse{
			ID:        c.ID.String(),
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": out,
		"total":         len(out),
	})
}

// messages returns a conversation's messages in chronological order.
func (h *ConversationHandler) messages(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	msgs, err := h.convs.Messages(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		h.logger.Error("failed to list messages", "error", err, "conversation_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list messages")
		return
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id.String(),
		"messages":        out,
		"total":           len(out),
	})
}

func toMessageResponse(m *conversation.Message) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID.String(),
		Role:      m.Role,
		Content:   m.Content,
		Citations: m.Citations,
		CreatedAt: m.CreatedAt,
	}
	for _, d := range m.DocIDs {
		resp.DocIDs = append(resp.DocIDs, d.String())
	}
	if m.Role == "assistant" && m.Usage.TotalTokens > 0 {
		resp.TokenUsage = &TokenUsage{
			PromptTokens:     m.Usage.PromptTokens,
			CompletionTokens: m.Usage.CompletionTokens,
			TotalTokens:      m.Usage.TotalTokens,
		}
	}
	return resp
}

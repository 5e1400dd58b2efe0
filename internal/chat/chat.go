// Package chat orchestrates one question/answer exchange: document
// validation, retrieval, synthesis, and conversation persistence.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/answer"
	"github.com/paperstack/paperstack/internal/conversation"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/log"
	"github.com/paperstack/paperstack/internal/retrieve"
)

// Limits on a single ask.
const (
	MaxQuestionLength = 4000
	MaxDocsPerAsk     = 20
)

// Sentinel errors. Check with errors.Is().
var (
	ErrEmptyQuestion    = errors.New("chat: question is empty")
	ErrQuestionTooLong  = errors.New("chat: question too long")
	ErrTooManyDocuments = errors.New("chat: too many documents selected")
	ErrDocumentNotReady = errors.New("chat: document is not ready")
)

// DocumentStore is the slice of document.Store the service needs.
type DocumentStore interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*document.Document, error)
}

// Retriever finds relevant chunks. *retrieve.Retriever satisfies this.
type Retriever interface {
	Retrieve(ctx context.Context, query string, docIDs []uuid.UUID, opts ...retrieve.Option) ([]retrieve.Result, error)
}

// Synthesizer produces the grounded answer. *answer.Synthesizer satisfies
// this.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, chunks []retrieve.Result, history []answer.HistoryMessage, filenames map[uuid.UUID]string) (*answer.Answer, error)
}

// ConversationStore persists chat threads. *conversation.Store satisfies
// this.
type ConversationStore interface {
	Create(ctx context.Context, userID uuid.UUID, firstQuestion string) (*conversation.Conversation, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*conversation.Conversation, error)
	History(ctx context.Context, userID, id uuid.UUID) ([]answer.HistoryMessage, error)
	AppendTurn(ctx context.Context, userID, conversationID uuid.UUID, turn conversation.Turn) (uuid.UUID, error)
}

// Request is one question against a set of documents.
type Request struct {
	Question string
	DocIDs   []uuid.UUID
	// ConversationID continues an existing thread. Nil starts a new one.
	ConversationID *uuid.UUID
	// TopK overrides the retrieval default when positive.
	TopK int
}

// Response is the answered question.
type Response struct {
	Answer         string
	Citations      []answer.Citation
	ConversationID uuid.UUID
	// MessageID identifies the stored assistant message.
	MessageID uuid.UUID
	Usage     answer.Usage
	Grounded  bool
}

// Service wires retrieval and synthesis behind a single Ask call.
//
// Service is safe for concurrent use.
type Service struct {
	docs      DocumentStore
	retriever Retriever
	synth     Synthesizer
	convs     ConversationStore
	logger    log.Logger
}

// New creates a chat Service.
func New(docs DocumentStore, retriever Retriever, synth Synthesizer, convs ConversationStore, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{docs: docs, retriever: retriever, synth: synth, convs: convs, logger: logger}
}

// Ask answers a question grounded in the user's selected documents.
//
// Every document must exist, belong to the user, and be ready; otherwise
// the whole request fails before any provider call is made. A request
// with no documents retrieves nothing and the model answers from the
// no-context policy.
func (s *Service) Ask(ctx context.Context, userID uuid.UUID, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	filenames := make(map[uuid.UUID]string, len(req.DocIDs))
	for _, docID := range req.DocIDs {
		doc, err := s.docs.Get(ctx, userID, docID)
		if err != nil {
			return nil, err
		}
		if !doc.Ready() {
			return nil, fmt.Errorf("document %s is %s: %w", docID, doc.Status, ErrDocumentNotReady)
		}
		filenames[docID] = doc.Filename
	}

	var (
		convID  uuid.UUID
		history []answer.HistoryMessage
	)
	if req.ConversationID != nil {
		conv, err := s.convs.Get(ctx, userID, *req.ConversationID)
		if err != nil {
			return nil, err
		}
		convID = conv.ID
		history, err = s.convs.History(ctx, userID, convID)
		if err != nil {
			return nil, err
		}
	} else {
		conv, err := s.convs.Create(ctx, userID, req.Question)
		if err != nil {
			return nil, err
		}
		convID = conv.ID
	}

	var opts []retrieve.Option
	if req.TopK > 0 {
		opts = append(opts, retrieve.WithTopK(req.TopK))
	}
	chunks, err := s.retriever.Retrieve(ctx, req.Question, req.DocIDs, opts...)
	if err != nil {
		return nil, err
	}

	ans, err := s.synth.Synthesize(ctx, req.Question, chunks, history, filenames)
	if err != nil {
		return nil, err
	}

	// Once the provider has answered, the turn is persisted even if the
	// client has gone away. Token usage was already paid for.
	persistCtx := context.WithoutCancel(ctx)
	msgID, err := s.convs.AppendTurn(persistCtx, userID, convID, conversation.Turn{
		Question:  req.Question,
		Answer:    ans.Text,
		DocIDs:    req.DocIDs,
		Citations: ans.Citations,
		Usage:     ans.Usage,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("answered question",
		"conversation", convID,
		"docs", len(req.DocIDs),
		"chunks", len(chunks),
		"grounded", ans.Grounded,
		"tokens", ans.Usage.TotalTokens,
	)
	return &Response{
		Answer:         ans.Text,
		Citations:      ans.Citations,
		ConversationID: convID,
		MessageID:      msgID,
		Usage:          ans.Usage,
		Grounded:       ans.Grounded,
	}, nil
}

func validate(req Request) error {
	if req.Question == "" {
		return ErrEmptyQuestion
	}
	if len(req.Question) > MaxQuestionLength {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrQuestionTooLong, len(req.Question), MaxQuestionLength)
	}
	if len(req.DocIDs) > MaxDocsPerAsk {
		return fmt.Errorf("%w: %d, limit %d", ErrTooManyDocuments, len(req.DocIDs), MaxDocsPerAsk)
	}
	return nil
}

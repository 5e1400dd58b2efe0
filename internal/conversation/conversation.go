// Package conversation persists chat threads and their messages.
//
// A conversation belongs to one user. Each answered question appends two
// messages inside a transaction, a user turn and an assistant turn, under a
// row lock on the conversation so concurrent asks interleave cleanly.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperstack/paperstack/internal/answer"
	"github.com/paperstack/paperstack/internal/log"
	"github.com/paperstack/paperstack/internal/sqlc"
)

// MaxTitleLength caps auto-generated conversation titles.
const MaxTitleLength = 100

// ErrNotFound is returned for conversations that do not exist or belong to
// a different user.
var ErrNotFound = errors.New("conversation not found")

// Querier defines the database operations the Store needs.
type Querier interface {
	CreateConversation(ctx context.Context, arg sqlc.CreateConversationParams) (sqlc.Conversation, error)
	GetConversation(ctx context.Context, arg sqlc.GetConversationParams) (sqlc.Conversation, error)
	LockConversation(ctx context.Context, arg sqlc.LockConversationParams) (sqlc.Conversation, error)
	ListConversations(ctx context.Context, userID pgtype.UUID) ([]sqlc.Conversation, error)
	CreateMessage(ctx context.Context, arg sqlc.CreateMessageParams) (sqlc.Message, error)
	ListMessages(ctx context.Context, conversationID pgtype.UUID) ([]sqlc.Message, error)
}

// Conversation is one chat thread.
type Conversation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	CreatedAt time.Time
}

// Message is one turn in a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Content        string
	DocIDs         []uuid.UUID
	Citations      []answer.Citation
	Usage          answer.Usage
	CreatedAt      time.Time
}

// Turn is one question/answer exchange to persist.
type Turn struct {
	Question  string
	Answer    string
	DocIDs    []uuid.UUID
	Citations []answer.Citation
	Usage     answer.Usage
}

// Store persists conversations in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool
	logger  log.Logger
}

// New creates a conversation Store. pool may be nil in tests, which
// disables the transactional path of AppendTurn.
func New(querier Querier, pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, pool: pool, logger: logger}
}

// Create starts a conversation. The title is derived from the first
// question, truncated on a rune boundary.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, firstQuestion string) (*Conversation, error) {
	title := TitleFromQuestion(firstQuestion)
	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}

	row, err := s.querier.CreateConversation(ctx, sqlc.CreateConversationParams{
		UserID: pgUUID(userID),
		Title:  titlePtr,
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	conv := fromConversationRow(row)
	s.logger.Debug("created conversation", "id", conv.ID, "title", conv.Title)
	return conv, nil
}

// Get returns the user's conversation, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID, id uuid.UUID) (*Conversation, error) {
	row, err := s.querier.GetConversation(ctx, sqlc.GetConversationParams{
		ID:     pgUUID(id),
		UserID: pgUUID(userID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return fromConversationRow(row), nil
}

// List returns the user's conversations, newest first.
func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]*Conversation, error) {
	rows, err := s.querier.ListConversations(ctx, pgUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	convs := make([]*Conversation, 0, len(rows))
	for _, row := range rows {
		convs = append(convs, fromConversationRow(row))
	}
	return convs, nil
}

// Messages returns all messages of the user's conversation in order.
func (s *Store) Messages(ctx context.Context, userID, id uuid.UUID) ([]*Message, error) {
	// Ownership check before reading messages.
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	rows, err := s.querier.ListMessages(ctx, pgUUID(id))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs := make([]*Message, 0, len(rows))
	for _, row := range rows {
		msg, err := fromMessageRow(row)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// AppendTurn stores one question/answer exchange and returns the ID of the
// stored assistant message. Both messages commit together or not at all,
// with the conversation row locked for the duration so concurrent turns on
// the same conversation serialize.
func (s *Store) AppendTurn(ctx context.Context, userID, conversationID uuid.UUID, turn Turn) (uuid.UUID, error) {
	if s.pool == nil {
		return s.appendTurnWith(ctx, s.querier, userID, conversationID, turn, false)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("rollback failed", "error", rbErr)
		}
	}()

	msgID, err := s.appendTurnWith(ctx, sqlc.New(tx), userID, conversationID, turn, true)
	if err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit turn: %w", err)
	}
	return msgID, nil
}

func (s *Store) appendTurnWith(ctx context.Context, q Querier, userID, conversationID uuid.UUID, turn Turn, lock bool) (uuid.UUID, error) {
	if lock {
		if _, err := q.LockConversation(ctx, sqlc.LockConversationParams{
			ID:     pgUUID(conversationID),
			UserID: pgUUID(userID),
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return uuid.Nil, ErrNotFound
			}
			return uuid.Nil, fmt.Errorf("lock conversation: %w", err)
		}
	} else if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return uuid.Nil, err
	}

	docIDs := make([]pgtype.UUID, len(turn.DocIDs))
	for i, id := range turn.DocIDs {
		docIDs[i] = pgUUID(id)
	}

	// The citations column is NOT NULL, and pgx encodes a nil []byte as
	// SQL NULL. User messages carry no citations, so both inserts fall
	// back to an empty JSON array.
	emptyCitations := []byte("[]")

	if _, err := q.CreateMessage(ctx, sqlc.CreateMessageParams{
		ConversationID: pgUUID(conversationID),
		Role:           "user",
		Content:        turn.Question,
		DocIds:         docIDs,
		Citations:      emptyCitations,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("store user message: %w", err)
	}

	citations := emptyCitations
	if len(turn.Citations) > 0 {
		var err error
		citations, err = json.Marshal(turn.Citations)
		if err != nil {
			return uuid.Nil, fmt.Errorf("marshal citations: %w", err)
		}
	}
	row, err := q.CreateMessage(ctx, sqlc.CreateMessageParams{
		ConversationID:   pgUUID(conversationID),
		Role:             "assistant",
		Content:          turn.Answer,
		DocIds:           docIDs,
		Citations:        citations,
		PromptTokens:     int32(turn.Usage.PromptTokens),
		CompletionTokens: int32(turn.Usage.CompletionTokens),
		TotalTokens:      int32(turn.Usage.TotalTokens),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("store assistant message: %w", err)
	}
	return uuid.UUID(row.ID.Bytes), nil
}

// History converts a conversation's stored messages into model history.
func (s *Store) History(ctx context.Context, userID, id uuid.UUID) ([]answer.HistoryMessage, error) {
	msgs, err := s.Messages(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	history := make([]answer.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, answer.HistoryMessage{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

// TitleFromQuestion derives a conversation title from its first question.
func TitleFromQuestion(question string) string {
	title := question
	if utf8.RuneCountInString(title) > MaxTitleLength {
		runes := []rune(title)
		title = string(runes[:MaxTitleLength-3]) + "..."
	}
	return title
}

func fromConversationRow(row sqlc.Conversation) *Conversation {
	conv := &Conversation{
		ID:        uuid.UUID(row.ID.Bytes),
		UserID:    uuid.UUID(row.UserID.Bytes),
		CreatedAt: row.CreatedAt.Time,
	}
	if row.Title != nil {
		conv.Title = *row.Title
	}
	return conv
}

func fromMessageRow(row sqlc.Message) (*Message, error) {
	msg := &Message{
		ID:             uuid.UUID(row.ID.Bytes),
		ConversationID: uuid.UUID(row.ConversationID.Bytes),
		Role:           row.Role,
		Content:        row.Content,
		Usage: answer.Usage{
			PromptTokens:     int(row.PromptTokens),
			CompletionTokens: int(row.CompletionTokens),
			TotalTokens:      int(row.TotalTokens),
		},
		CreatedAt: row.CreatedAt.Time,
	}
	for _, id := range row.DocIds {
		msg.DocIDs = append(msg.DocIDs, uuid.UUID(id.Bytes))
	}
	if len(row.Citations) > 0 {
		if err := json.Unmarshal(row.Citations, &msg.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations for message %x: %w", row.ID.Bytes, err)
		}
	}
	return msg, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

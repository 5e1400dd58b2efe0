// Package embed turns chunk text into fixed-dimension vectors through a
// Genkit embedder, batching requests and retrying transient provider
// failures.
package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"

	"github.com/paperstack/paperstack/internal/backoff"
	"github.com/paperstack/paperstack/internal/log"
)

// ErrDimensionMismatch is returned when the provider yields a vector whose
// length differs from the configured dimensionality. Persisting such a
// vector would poison similarity search, so the whole batch fails.
var ErrDimensionMismatch = errors.New("embed: vector dimension mismatch")

// Config controls batching and validation.
type Config struct {
	// BatchSize is the maximum number of texts per provider request.
	BatchSize int
	// Dimensions is the expected vector length. Zero disables the check.
	Dimensions int
	// Retry configures backoff for transient provider errors.
	Retry backoff.Config
}

// Client embeds batches of texts. It preserves input order: result vector i
// corresponds to input text i.
//
// Client is safe for concurrent use.
type Client struct {
	embedder ai.Embedder
	cfg      Config
	logger   log.Logger
}

// New creates a Client around a Genkit embedder.
func New(embedder ai.Embedder, cfg Config, logger log.Logger) (*Client, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embed: embedder is nil")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("embed: batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = backoff.DefaultConfig()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{embedder: embedder, cfg: cfg, logger: logger}, nil
}

// EmbedTexts embeds all texts, splitting them into provider-sized batches.
// The returned slice is ordered to match texts.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d of %d: %w", start, end, len(texts), err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := backoff.Do(ctx, c.cfg.Retry, c.logger, "embed",
		func(ctx context.Context) (*ai.EmbedResponse, error) {
			return c.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
		})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: provider returned %d vectors for %d inputs",
			len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if c.cfg.Dimensions > 0 && len(e.Embedding) != c.cfg.Dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d",
				ErrDimensionMismatch, len(e.Embedding), c.cfg.Dimensions)
		}
		vectors[i] = e.Embedding
	}
	return vectors, nil
}

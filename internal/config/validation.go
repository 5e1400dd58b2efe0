package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidDimensions indicates the embedding dimensionality is out of range.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidChunking indicates chunk size/overlap values are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidThreshold indicates a similarity threshold is out of [0, 1).
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidPolicy indicates the zero-context policy is unknown.
	ErrInvalidPolicy = errors.New("invalid no-context policy")

	// ErrInvalidWorkers indicates an invalid ingestion worker count.
	ErrInvalidWorkers = errors.New("invalid ingest workers")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

var validSSLModes = map[string]struct{}{
	"disable": {}, "allow": {}, "prefer": {}, "require": {}, "verify-ca": {}, "verify-full": {},
}

// Validate checks the configuration for consistency.
// Returns a sentinel error (wrapped with context) on the first violation.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGoogleAI, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be one of: googleai, ollama, openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidEmbedderModel)
	}

	// API key presence per provider. Genkit plugins read these directly;
	// failing here gives a clear startup error instead of a late 401.
	switch c.Provider {
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY required for googleai provider", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY required for openai provider", ErrMissingAPIKey)
		}
	case ProviderOllama:
		if strings.TrimSpace(c.OllamaHost) == "" {
			return fmt.Errorf("%w: ollama_host must not be empty", ErrInvalidOllamaHost)
		}
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: %d (must be in [1, 65536])", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.EmbeddingDimensions < 1 || c.EmbeddingDimensions > 4096 {
		return fmt.Errorf("%w: %d (must be in [1, 4096])", ErrInvalidDimensions, c.EmbeddingDimensions)
	}
	if c.EmbedBatchSize < 1 || c.EmbedBatchSize > 1000 {
		return fmt.Errorf("%w: embed_batch_size %d (must be in [1, 1000])", ErrInvalidDimensions, c.EmbedBatchSize)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size %d must be positive", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.MinChunkSize < 0 || c.MinChunkSize > c.ChunkSize {
		return fmt.Errorf("%w: min_chunk_size %d must be in [0, chunk_size]", ErrInvalidChunking, c.MinChunkSize)
	}

	if c.MaxContextChunks < 1 || c.MaxContextChunks > 50 {
		return fmt.Errorf("%w: max_context_chunks %d (must be in [1, 50])", ErrInvalidThreshold, c.MaxContextChunks)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("%w: %v (must be in [0, 1))", ErrInvalidThreshold, c.SimilarityThreshold)
	}
	if c.FallbackThreshold < 0 || c.FallbackThreshold >= 1 {
		return fmt.Errorf("%w: fallback %v (must be in [0, 1))", ErrInvalidThreshold, c.FallbackThreshold)
	}

	switch c.NoContextPolicy {
	case PolicyDecline, PolicyUngrounded:
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidPolicy, c.NoContextPolicy, PolicyDecline, PolicyUngrounded)
	}

	if c.IngestWorkers < 1 || c.IngestWorkers > 64 {
		return fmt.Errorf("%w: %d (must be in [1, 64])", ErrInvalidWorkers, c.IngestWorkers)
	}
	if c.IngestQueueSize < 1 {
		return fmt.Errorf("%w: queue size %d must be positive", ErrInvalidWorkers, c.IngestQueueSize)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

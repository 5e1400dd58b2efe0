// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.paperstack/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, chat model, embedder model, temperature, output tokens
//   - Storage: PostgreSQL connection and blob directory (see storage.go)
//   - Ingestion: chunk sizing, embedding batch size, worker pool
//   - Retrieval: top-k, similarity thresholds
//   - Answering: zero-context policy
//   - Telemetry: OTLP trace export
//
// Security: Sensitive data (passwords) are never logged; config directory uses 0750 permissions.
// Validation: Range checks in validation.go with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
)

// Zero-context answer policies used in Config.NoContextPolicy.
// PolicyDecline returns a canned refusal when retrieval finds nothing;
// PolicyUngrounded answers from general knowledge with an explicit flag.
const (
	PolicyDecline    = "decline"
	PolicyUngrounded = "ungrounded"
)

// DefaultEmbedderModel is the default embedder.
// text-embedding-004 outputs 768 dimensions, matching the vector(768)
// column in db/migrations.
const DefaultEmbedderModel = "text-embedding-004"

// TelemetryConfig configures OTLP trace export.
// Traces are sent to a local collector over OTLP HTTP; the collector
// handles authentication and forwarding.
type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"` // host:port of the OTLP HTTP collector
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "googleai" (default), "ollama", "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // Provider-qualified chat model (e.g., "googleai/gemini-2.5-flash")
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"` // Max completion output tokens

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedding configuration
	EmbedderModel       string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions" json:"embedding_dimensions"` // Must match the vector column width
	EmbedBatchSize      int    `mapstructure:"embed_batch_size" json:"embed_batch_size"`

	// Chunking configuration (token counts)
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	MinChunkSize int `mapstructure:"min_chunk_size" json:"min_chunk_size"`

	// Retrieval configuration
	MaxContextChunks    int     `mapstructure:"max_context_chunks" json:"max_context_chunks"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`
	FallbackThreshold   float64 `mapstructure:"fallback_threshold" json:"fallback_threshold"` // 0 disables the low-recall retry

	// Answer synthesis configuration
	NoContextPolicy string `mapstructure:"no_context_policy" json:"no_context_policy"` // "decline" or "ungrounded"

	// Ingestion worker pool
	IngestWorkers   int `mapstructure:"ingest_workers" json:"ingest_workers"`
	IngestQueueSize int `mapstructure:"ingest_queue_size" json:"ingest_queue_size"`

	// Upload limits and blob storage
	MaxUploadMB int    `mapstructure:"max_upload_mb" json:"max_upload_mb"`
	BlobDir     string `mapstructure:"blob_dir" json:"blob_dir"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`

	// Serve mode configuration
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For headers (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // Per-IP rate limiter burst (0 = default)
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".paperstack")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGoogleAI)
	viper.SetDefault("model_name", "googleai/gemini-2.5-flash")
	viper.SetDefault("temperature", 0.3)
	viper.SetDefault("max_tokens", 1000)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Embedding defaults
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dimensions", 768)
	viper.SetDefault("embed_batch_size", 100)

	// Chunking defaults
	viper.SetDefault("chunk_size", 800)
	viper.SetDefault("chunk_overlap", 150)
	viper.SetDefault("min_chunk_size", 100)

	// Retrieval defaults
	viper.SetDefault("max_context_chunks", 10)
	viper.SetDefault("similarity_threshold", 0.7)
	viper.SetDefault("fallback_threshold", 0.0)

	// Answering defaults
	viper.SetDefault("no_context_policy", PolicyDecline)

	// Ingestion defaults
	viper.SetDefault("ingest_workers", 2)
	viper.SetDefault("ingest_queue_size", 32)

	// Upload defaults
	viper.SetDefault("max_upload_mb", 50)
	viper.SetDefault("blob_dir", "./data/blobs")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "paperstack")
	viper.SetDefault("postgres_password", "paperstack_dev_password")
	viper.SetDefault("postgres_db_name", "paperstack")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// CORS defaults
	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 0)

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "paperstack")
	viper.SetDefault("telemetry.environment", "dev")
}

// bindEnvVariables binds environment variable overrides explicitly.
// API keys for model providers are read directly by the Genkit plugins
// (GEMINI_API_KEY, OPENAI_API_KEY), not via Viper; validation checks their
// presence based on the selected provider.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "PAPERSTACK_PROVIDER")
	mustBind("model_name", "PAPERSTACK_MODEL_NAME")
	mustBind("embedder_model", "PAPERSTACK_EMBEDDER_MODEL")
	mustBind("ollama_host", "PAPERSTACK_OLLAMA_HOST")
	mustBind("no_context_policy", "PAPERSTACK_NO_CONTEXT_POLICY")
	mustBind("blob_dir", "PAPERSTACK_BLOB_DIR")
	mustBind("cors_origins", "PAPERSTACK_CORS_ORIGINS")
	mustBind("trust_proxy", "PAPERSTACK_TRUST_PROXY")
	mustBind("rate_burst", "PAPERSTACK_RATE_BURST")
	mustBind("ingest_workers", "PAPERSTACK_INGEST_WORKERS")
	mustBind("telemetry.enabled", "PAPERSTACK_TELEMETRY_ENABLED")
	mustBind("telemetry.endpoint", "PAPERSTACK_TELEMETRY_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // Avoid recursive MarshalJSON
	a := alias(c)
	if a.PostgresPassword != "" {
		a.PostgresPassword = maskedValue
	}
	return json.Marshal(a)
}

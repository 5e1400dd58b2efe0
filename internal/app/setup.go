package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/paperstack/paperstack/db"
	"github.com/paperstack/paperstack/internal/answer"
	"github.com/paperstack/paperstack/internal/backoff"
	"github.com/paperstack/paperstack/internal/blob"
	"github.com/paperstack/paperstack/internal/chat"
	"github.com/paperstack/paperstack/internal/chunker"
	"github.com/paperstack/paperstack/internal/config"
	"github.com/paperstack/paperstack/internal/conversation"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/embed"
	"github.com/paperstack/paperstack/internal/ingest"
	"github.com/paperstack/paperstack/internal/log"
	"github.com/paperstack/paperstack/internal/retrieve"
	"github.com/paperstack/paperstack/internal/sqlc"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	blobs, err := blob.New(cfg.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("creating blob store: %w", err)
	}
	a.Blobs = blobs

	ch, err := chunker.New(chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		Overlap:      cfg.ChunkOverlap,
		MinChunkSize: cfg.MinChunkSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	embedClient, err := embed.New(embedder, embed.Config{
		BatchSize:  cfg.EmbedBatchSize,
		Dimensions: cfg.EmbeddingDimensions,
		Retry:      backoff.DefaultConfig(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embed client: %w", err)
	}

	queries := sqlc.New(pool)
	a.Documents = document.New(queries, logger)
	a.Conversations = conversation.New(queries, pool, logger)

	retriever, err := retrieve.New(queries, embedClient, retrieve.Config{
		TopK:              cfg.MaxContextChunks,
		Threshold:         cfg.SimilarityThreshold,
		FallbackThreshold: cfg.FallbackThreshold,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	synth, err := answer.New(g, answer.Config{
		ModelName:   cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Policy:      answer.Policy(cfg.NoContextPolicy),
		Retry:       backoff.DefaultConfig(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating synthesizer: %w", err)
	}

	a.Chat = chat.New(a.Documents, retriever, synth, a.Conversations, logger)

	// Ingestion workers outlive the signal context that drives Setup.
	// Shutdown reaches them through Close, which drains the queue before
	// canceling, so a SIGINT never aborts a document mid-process.
	workerCtx, cancel := workerContext(ctx)
	a.cancel = cancel

	pipeline := ingest.NewPipeline(a.Documents, queries, pool, ch, embedClient, logger)
	a.Queue = ingest.NewQueue(pipeline, cfg.IngestWorkers, cfg.IngestQueueSize, logger)
	a.Queue.Start(workerCtx)

	a.Uploader = ingest.NewUploader(blobs, a.Documents, a.Queue, int64(cfg.MaxUploadMB)<<20, logger)

	return a, nil
}

// workerContext derives the ingestion worker context. It keeps the
// parent's values but not its cancelation, so canceling the signal
// context does not abort in-flight jobs before Close drains the queue.
func workerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(ctx))
}

// provideOtelShutdown sets up OTLP trace export before Genkit
// initialization so the TracerProvider is ready when plugins register.
// Returns a shutdown closure; a no-op when telemetry is disabled.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	tel := cfg.Telemetry
	if !tel.Enabled {
		return func() {}
	}

	endpoint := tel.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	// Set OTEL env vars for Genkit's TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this function is called
	// exactly once during startup in Setup, before goroutines are spawned.
	if tel.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tel.ServiceName)
	}
	if tel.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tel.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", tel.ServiceName,
		"environment", tel.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports googleai (default), ollama, and openai providers.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "googleai"
	}

	var g *genkit.Genkit

	switch provider {
	case "ollama":
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case "openai":
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "googleai"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		logger.Info("initialized Genkit with googleai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider plugin.
// Each provider registers embedders differently:
//   - googleai: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	provider := cfg.Provider
	if provider == "" {
		provider = "googleai"
	}

	switch provider {
	case "ollama":
		return ollama.Embedder(g, cfg.OllamaHost)
	case "openai":
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // "googleai"
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

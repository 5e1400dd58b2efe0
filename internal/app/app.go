// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles the document pipeline: database
// pool, genkit provider plugins, embedder, blob storage, stores, the
// ingestion worker queue, and the chat service. cmd builds an App once
// per process and hands its pieces to the HTTP or MCP server.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperstack/paperstack/internal/blob"
	"github.com/paperstack/paperstack/internal/chat"
	"github.com/paperstack/paperstack/internal/config"
	"github.com/paperstack/paperstack/internal/conversation"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/ingest"
	"github.com/paperstack/paperstack/internal/log"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	// Domain components
	Blobs         *blob.Store
	Documents     *document.Store
	Conversations *conversation.Store
	Chat          *chat.Service
	Uploader      *ingest.Uploader
	Queue         *ingest.Queue

	// Lifecycle management
	cancel      context.CancelFunc
	otelCleanup func()
}

// Close gracefully shuts down all resources. The ingestion queue is
// drained first so in-flight documents finish before the pool closes.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.Queue != nil {
		a.Queue.Stop()
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}

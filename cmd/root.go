// Package cmd provides CLI commands for paperstack.
//
// Commands:
//   - serve: HTTP JSON API server for uploads, documents, and chat
//   - mcp: Model Context Protocol server for agent integration
//   - version: build and configuration information
//
// Signal handling and graceful shutdown are implemented
// for all long-running commands via context cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "paperstack",
	Short: "Paperstack - chat with your PDF documents",
	Long: `Paperstack ingests PDF documents, indexes their content as vector
embeddings in PostgreSQL, and answers questions grounded in the
retrieved passages with source citations.

Run "paperstack serve" to start the HTTP API, or "paperstack mcp"
to expose the same operations as MCP tools over stdio.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the paperstack CLI.
// It initializes the default logger once and dispatches to subcommands.
func Execute() error {
	// MCP protocol requires logging to stderr, stdout is reserved
	// for JSON-RPC messages.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return rootCmd.Execute()
}

func init() {
	// Subcommands register themselves in their own files.
}

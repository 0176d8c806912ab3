package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"vaultindex/internal/config"
	"vaultindex/internal/fulltext"
	"vaultindex/internal/indexer"
	"vaultindex/internal/llm"
	"vaultindex/internal/service"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
	"vaultindex/internal/vectorstore"
)

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *sql.DB
	pages       *storage.PageRepo
	attachments *storage.AttachmentRepo
	text        *fulltext.Index
	store       vectorstore.EmbeddingStore // nil unless vectors were requested
	embedder    llm.Embedder

	vaults      []vault.Vault
	pipeline    *indexer.Pipeline
	retrieval   *service.Retrieval
	maintenance *service.Maintenance
}

// newLogger builds the process logger. Logs go to stderr so stdout stays free for
// command output and the MCP stdio transport.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// openApp opens the metadata database and wires the engine. The vector backend and
// the embeddings client are only created when withVectors is set, so lexical
// commands work without an embeddings server.
func openApp(ctx context.Context, cfg *config.Config, withVectors bool) (*app, error) {
	a := &app{cfg: cfg, logger: newLogger(os.Stderr, cfg)}
	slog.SetDefault(a.logger)
	a.logger.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	if err := storage.Migrate(db); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.logger.Debug("Database initialized", "path", cfg.DBPath)

	a.pages = storage.NewPageRepo(db)
	a.attachments = storage.NewAttachmentRepo(db)
	if a.text, err = fulltext.New(ctx, db, cfg.Search.SnippetLength); err != nil {
		a.Close()
		return nil, err
	}

	table := cfg.Embedding.TableName()
	if withVectors {
		store, err := vectorstore.Open(ctx, cfg.Vector, cfg.Embedding.Dimension)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open vector backend %s: %w", cfg.Vector.Backend, err)
		}
		a.store = store
		a.embedder = llm.NewEmbeddingsClientFromConfig(cfg.Embedding)
		a.logger.Debug("Vector backend ready", "backend", cfg.Vector.Backend, "table", table,
			"dimension", cfg.Embedding.Dimension)
	}

	a.vaults = vault.ResolveVaults(cfg)
	a.pipeline = indexer.NewPipeline(a.pages, a.attachments, a.text, a.embedder, a.store, table, indexer.Options{
		Workers:       cfg.Embedding.Workers,
		MaxInputRunes: cfg.Embedding.MaxInputRunes,
	})
	a.retrieval = service.NewRetrieval(a.pages, a.attachments, a.text, a.embedder, a.store, table, cfg.Search)
	scanner := vault.NewScanner(a.pages, a.attachments, cfg.General.Indicator, cfg.Scan.Workers)
	a.maintenance = service.NewMaintenance(scanner, a.vaults, a.pipeline, a.store, table)
	return a, nil
}

// Close releases the vector backend and the database.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close vector backend", "error", err)
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

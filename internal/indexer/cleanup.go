package indexer

import (
	"context"
	"fmt"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/storage"
	"vaultindex/internal/vectorstore"
)

// CleanupResult counts what CleanupStale removed.
type CleanupResult struct {
	Pages       int
	Attachments int
	Embeddings  int
}

// CleanupStale removes rows whose files no longer exist, then their full-text
// entries and, when an embedding store is attached, their embeddings.
func (p *Pipeline) CleanupStale(ctx context.Context) (*CleanupResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	pages, err := p.pages.CleanupStale(ctx, storage.FileExists)
	if err != nil {
		return nil, fmt.Errorf("failed to clean up pages: %w", err)
	}
	result := &CleanupResult{Pages: len(pages)}

	if p.attachments != nil {
		attachments, err := p.attachments.CleanupStale(ctx, storage.FileExists)
		if err != nil {
			return result, fmt.Errorf("failed to clean up attachments: %w", err)
		}
		result.Attachments = len(attachments)
	}

	if len(pages) == 0 {
		return result, nil
	}

	if p.text != nil {
		for _, page := range pages {
			if _, err := p.text.Remove(ctx, page.Path); err != nil {
				logger.WarnContext(ctx, "failed to remove full-text entry", "path", page.Path, "error", err)
			}
		}
	}

	if p.store != nil {
		exists, err := p.store.TableExists(ctx, p.table)
		if err != nil {
			return result, fmt.Errorf("failed to check table %s: %w", p.table, err)
		}
		if exists {
			ids := make([]string, len(pages))
			for i, page := range pages {
				ids[i] = vectorstore.EmbeddingID(page.VirtualPath, page.Path)
			}
			if err := p.store.DeleteEmbeddings(ctx, p.table, ids); err != nil {
				return result, fmt.Errorf("failed to delete stale embeddings: %w", err)
			}
			result.Embeddings = len(ids)
		}
	}

	logger.InfoContext(ctx, "removed stale entries",
		"pages", result.Pages, "attachments", result.Attachments, "embeddings", result.Embeddings)
	return result, nil
}

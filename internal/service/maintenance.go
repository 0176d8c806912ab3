package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/indexer"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
	"vaultindex/internal/vectorstore"
)

// ErrBusy is returned when a maintenance job is already running.
var ErrBusy = errors.New("another maintenance job is running")

// ScanSummary holds the reports of a scan.
type ScanSummary struct {
	Documents   *vault.Report
	Attachments *vault.Report // nil unless images were scanned
}

// IndexOptions selects which indexes to build.
type IndexOptions struct {
	FullText   bool
	Embeddings bool
}

// IndexSummary holds the results of an index run.
type IndexSummary struct {
	FullTextDocuments int
	FullTextReport    *indexer.Report
	Embeddings        *indexer.Progress
}

// Maintenance runs the write-side jobs: scanning, indexing, cleanup and optimisation.
type Maintenance struct {
	scanner  *vault.Scanner
	vaults   []vault.Vault
	pipeline *indexer.Pipeline
	store    vectorstore.EmbeddingStore
	table    string
	running  atomic.Bool
}

// NewMaintenance creates a Maintenance. store may be nil when embeddings are disabled.
func NewMaintenance(scanner *vault.Scanner, vaults []vault.Vault, pipeline *indexer.Pipeline, store vectorstore.EmbeddingStore, table string) *Maintenance {
	return &Maintenance{
		scanner:  scanner,
		vaults:   vaults,
		pipeline: pipeline,
		store:    store,
		table:    table,
	}
}

// Acquire reserves the job slot. The returned release must be called when the
// job ends. It fails with ErrBusy while another job holds the slot.
func (m *Maintenance) Acquire() (release func(), err error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func() { m.running.Store(false) }, nil
}

// Scan records the markdown documents of every vault, and their images when asked.
func (m *Maintenance) Scan(ctx context.Context, images bool) (*ScanSummary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	_, docs, err := m.scanner.ScanDocuments(ctx, m.vaults)
	if err != nil {
		return nil, WrapError(err, "document scan failed")
	}
	summary := &ScanSummary{Documents: docs}
	logger.InfoContext(ctx, "document scan finished", "files", docs.Total(), "failures", len(docs.Failures))

	if images {
		att, err := m.scanner.ScanAttachments(ctx, m.vaults)
		if err != nil {
			return summary, WrapError(err, "attachment scan failed")
		}
		summary.Attachments = att
		logger.InfoContext(ctx, "attachment scan finished", "files", att.Total(), "failures", len(att.Failures))
	}
	return summary, nil
}

// Index builds the selected indexes from the metadata store.
func (m *Maintenance) Index(ctx context.Context, opts IndexOptions) (*IndexSummary, error) {
	if !opts.FullText && !opts.Embeddings {
		return nil, &ValidationError{Field: "index", Message: "select full-text, embeddings or both"}
	}
	summary := &IndexSummary{}

	if opts.FullText {
		n, report, err := m.pipeline.BuildFullTextIndex(ctx)
		if err != nil {
			return summary, WrapError(err, "full-text indexing failed")
		}
		summary.FullTextDocuments = n
		summary.FullTextReport = report
	}

	if opts.Embeddings {
		progress, err := m.pipeline.IndexDocuments(ctx)
		summary.Embeddings = progress
		if err != nil {
			return summary, WrapError(err, "embedding indexing failed")
		}
	}
	return summary, nil
}

// Refresh re-records one document and replaces its full-text entry. path is
// physical or virtual. A physical path not scanned yet is recorded as long as
// it lies inside a configured vault.
func (m *Maintenance) Refresh(ctx context.Context, path string) (*vault.ScannedFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ValidationError{Field: "path", Message: "cannot be empty"}
	}

	var physical string
	if storage.FileExists(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, WrapError(err, "failed to resolve path")
		}
		physical = abs
	} else {
		rec, err := m.pipeline.Resolve(ctx, path)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: document %s", ErrNotFound, path)
		}
		if err != nil {
			return nil, err
		}
		physical = rec.Path
	}

	v, ok := vault.Containing(m.vaults, physical)
	if !ok {
		return nil, &ValidationError{Field: "path", Message: physical + " is not inside a configured vault"}
	}
	file, err := m.scanner.ScanFile(ctx, v.Name, physical)
	if err != nil {
		return nil, WrapError(err, "failed to scan document")
	}
	if err := m.pipeline.UpdateDocument(ctx, physical); err != nil {
		return file, WrapError(err, "failed to update full-text entry")
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "refreshed document",
		"vault", v.Name, "path", physical, "virtual_path", file.VirtualPath)
	return file, nil
}

// Cleanup removes entries for files that no longer exist.
func (m *Maintenance) Cleanup(ctx context.Context) (*indexer.CleanupResult, error) {
	return m.pipeline.CleanupStale(ctx)
}

// Optimize rebuilds the ANN index of the embedding table.
func (m *Maintenance) Optimize(ctx context.Context) error {
	if m.store == nil {
		return fmt.Errorf("%w: embedding store is not configured", ErrNotFound)
	}
	if err := m.store.Optimize(ctx, m.table); err != nil {
		return WrapError(err, "optimize failed")
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "optimized embedding table", "table", m.table)
	return nil
}

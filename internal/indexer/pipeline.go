package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/fulltext"
	"vaultindex/internal/llm"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
	"vaultindex/internal/vectorstore"
)

// ErrTaskFailure marks a document whose worker panicked.
var ErrTaskFailure = errors.New("indexing task failed")

// Options tunes the pipeline. Zero values fall back to defaults.
type Options struct {
	Workers        int
	MaxInputRunes  int
	BatchSize      int
	TickInterval   time.Duration // debug progress line
	StatusInterval time.Duration // info status line
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxInputRunes <= 0 {
		o.MaxInputRunes = 8000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 500 * time.Millisecond
	}
	if o.StatusInterval <= 0 {
		o.StatusInterval = 2 * time.Second
	}
	return o
}

// Pipeline indexes the documents recorded in the metadata store into the
// full-text index and the embedding store.
type Pipeline struct {
	pages       storage.PageStore
	attachments storage.AttachmentStore
	text        *fulltext.Index
	embedder    llm.Embedder
	store       vectorstore.EmbeddingStore
	table       string
	opts        Options
}

// NewPipeline creates a new indexing pipeline. embedder and store may be nil when
// only full-text indexing is used.
func NewPipeline(
	pages storage.PageStore,
	attachments storage.AttachmentStore,
	text *fulltext.Index,
	embedder llm.Embedder,
	store vectorstore.EmbeddingStore,
	table string,
	opts Options,
) *Pipeline {
	return &Pipeline{
		pages:       pages,
		attachments: attachments,
		text:        text,
		embedder:    embedder,
		store:       store,
		table:       table,
		opts:        opts.withDefaults(),
	}
}

// Failure is a per-document error.
type Failure struct {
	Path string
	Err  error
}

// Progress is a snapshot of an embedding run.
type Progress struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	Failures  []Failure
	Elapsed   time.Duration
}

// counters are shared with the reporter goroutine, which only reads them.
type counters struct {
	total     atomic.Int64
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

type embedResult struct {
	record    storage.PageRecord
	embedding vectorstore.DocumentEmbedding
	err       error
}

// IndexDocuments embeds every markdown document in the metadata store and writes
// the embeddings to the configured table, replacing previous embeddings by id.
// Per-document failures are recorded in the returned Progress; only context
// cancellation and store setup errors abort the run.
func (p *Pipeline) IndexDocuments(ctx context.Context) (*Progress, error) {
	logger := contextutil.LoggerFromContext(ctx)
	if p.embedder == nil || p.store == nil {
		return nil, fmt.Errorf("embedding indexing requires an embedder and an embedding store")
	}

	exists, err := p.store.TableExists(ctx, p.table)
	if err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", p.table, err)
	}
	if !exists {
		if err := p.store.CreateTable(ctx, p.table); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", p.table, err)
		}
		logger.InfoContext(ctx, "created embedding table", "table", p.table, "dimension", p.store.Dimension())
	}

	records, err := p.markdownRecords(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var c counters
	c.total.Store(int64(len(records)))
	logger.InfoContext(ctx, "starting embedding indexing", "documents", len(records), "workers", p.opts.Workers)

	stopReporter := p.startReporter(ctx, &c, start)
	defer stopReporter()

	jobs := make(chan storage.PageRecord)
	results := make(chan embedResult, p.opts.Workers)

	go func() {
		defer close(jobs)
		for _, rec := range records {
			select {
			case jobs <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				emb, err := p.embedRecord(ctx, rec)
				select {
				case results <- embedResult{record: rec, embedding: emb, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Single writer: every store call happens on this goroutine
	progress := &Progress{Total: len(records)}
	fail := func(path string, err error) {
		c.failed.Add(1)
		progress.Failures = append(progress.Failures, Failure{Path: path, Err: err})
		logger.WarnContext(ctx, "failed to index document", "path", path, "error", err)
	}

	var batch []embedResult
	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, r := range p.writeBatch(ctx, batch) {
			fail(r.record.Path, r.err)
		}
		c.processed.Add(int64(len(batch)))
		batch = batch[:0]
	}

	for r := range results {
		if r.err != nil {
			fail(r.record.Path, r.err)
			c.processed.Add(1)
			continue
		}
		batch = append(batch, r)
		if len(batch) >= p.opts.BatchSize {
			flush()
		}
	}
	if ctx.Err() == nil {
		flush()
	}

	progress.Processed = int(c.processed.Load())
	progress.Failed = int(c.failed.Load())
	progress.Succeeded = progress.Processed - progress.Failed
	progress.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		return progress, err
	}

	logger.InfoContext(ctx, "embedding indexing completed",
		"documents", progress.Total,
		"succeeded", progress.Succeeded,
		"failed", progress.Failed,
		"elapsed", progress.Elapsed.Round(time.Millisecond))
	return progress, nil
}

// writeBatch replaces the embeddings of batch in one call and returns the entries
// that could not be stored. A rejected batch is retried one document at a time
// so a single bad vector does not fail its neighbours.
func (p *Pipeline) writeBatch(ctx context.Context, batch []embedResult) []embedResult {
	ids := make([]string, len(batch))
	embeddings := make([]vectorstore.DocumentEmbedding, len(batch))
	for i, r := range batch {
		ids[i] = r.embedding.ID
		embeddings[i] = r.embedding
	}

	if err := p.store.DeleteEmbeddings(ctx, p.table, ids); err == nil {
		if err := p.store.AddEmbeddings(ctx, p.table, embeddings); err == nil {
			return nil
		}
	}

	var failed []embedResult
	for _, r := range batch {
		if err := p.store.DeleteEmbeddings(ctx, p.table, []string{r.embedding.ID}); err != nil {
			r.err = fmt.Errorf("failed to delete previous embedding: %w", err)
			failed = append(failed, r)
			continue
		}
		if err := p.store.AddEmbeddings(ctx, p.table, []vectorstore.DocumentEmbedding{r.embedding}); err != nil {
			r.err = fmt.Errorf("failed to store embedding: %w", err)
			failed = append(failed, r)
		}
	}
	return failed
}

// embedRecord reads and embeds one document. A panic becomes ErrTaskFailure.
func (p *Pipeline) embedRecord(ctx context.Context, rec storage.PageRecord) (emb vectorstore.DocumentEmbedding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskFailure, r)
		}
	}()

	content, err := os.ReadFile(rec.Path)
	if err != nil {
		return emb, fmt.Errorf("failed to read file: %w", err)
	}

	vec, err := p.embedder.Embed(ctx, truncateRunes(string(content), p.opts.MaxInputRunes))
	if err != nil {
		return emb, fmt.Errorf("failed to embed: %w", err)
	}

	return vectorstore.DocumentEmbedding{
		ID:     vectorstore.EmbeddingID(rec.VirtualPath, rec.Path),
		Vector: vec,
		Metadata: map[string]string{
			vectorstore.MetaPhysicalPath:   rec.Path,
			vectorstore.MetaVirtualPath:    rec.VirtualPath,
			vectorstore.MetaRecordMetadata: rec.Metadata,
		},
	}, nil
}

func (p *Pipeline) startReporter(ctx context.Context, c *counters, start time.Time) (stop func()) {
	logger := contextutil.LoggerFromContext(ctx)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(p.opts.TickInterval)
		defer ticker.Stop()
		lastStatus := start

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				processed, total := c.processed.Load(), c.total.Load()
				logger.DebugContext(ctx, "indexing progress", "processed", processed, "total", total)

				if now.Sub(lastStatus) < p.opts.StatusInterval {
					continue
				}
				lastStatus = now
				elapsed := now.Sub(start)
				rate := float64(processed) / elapsed.Seconds()
				logger.InfoContext(ctx, "indexing status",
					"processed", processed,
					"total", total,
					"succeeded", c.processed.Load()-c.failed.Load(),
					"failed", c.failed.Load(),
					"docs_per_sec", fmt.Sprintf("%.1f", rate),
					"elapsed", elapsed.Round(time.Second))
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

// markdownRecords returns the markdown rows of the metadata store, deduplicated
// by physical path with the first occurrence kept.
func (p *Pipeline) markdownRecords(ctx context.Context) ([]storage.PageRecord, error) {
	tree, err := p.pages.FileTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load file tree: %w", err)
	}

	seen := make(map[string]bool, len(tree))
	records := make([]storage.PageRecord, 0, len(tree))
	for _, rec := range tree {
		if !isMarkdown(rec.Path) || seen[rec.Path] {
			continue
		}
		seen[rec.Path] = true
		records = append(records, rec)
	}
	return records, nil
}

func isMarkdown(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return vault.MarkdownExtensions[ext]
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

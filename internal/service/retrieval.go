package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vaultindex/internal/config"
	"vaultindex/internal/contextutil"
	"vaultindex/internal/fulltext"
	"vaultindex/internal/llm"
	"vaultindex/internal/storage"
	"vaultindex/internal/vectorstore"
)

// Hit is a document returned by similarity search.
type Hit struct {
	PhysicalPath string  `json:"physical_path"`
	VirtualPath  string  `json:"virtual_path"`
	Similarity   float64 `json:"similarity"`
}

// SimilarOptions tunes a similarity query. Zero Max and Threshold use the configured
// defaults; a negative Threshold disables the cutoff.
type SimilarOptions struct {
	Max       int
	Threshold float64
	Filter    string // backend filter expression, see vectorstore.ParseFilter

	exclude string
}

// Stats summarises the index contents.
type Stats struct {
	Vaults      map[string]int `json:"vaults"`
	Documents   int            `json:"documents"`
	Attachments int            `json:"attachments"`
	FullText    int            `json:"fulltext_documents"`
	FullTextFTS bool           `json:"fulltext_fts5"`
}

// Retrieval answers lexical and similarity queries and resolves hits back to the
// metadata store.
type Retrieval struct {
	pages       storage.PageStore
	attachments storage.AttachmentStore
	text        *fulltext.Index
	embedder    llm.Embedder
	store       vectorstore.EmbeddingStore
	table       string
	cfg         config.SearchConfig
}

// NewRetrieval creates a Retrieval. embedder and store may be nil, in which case
// only lexical search and catalogue queries are available.
func NewRetrieval(
	pages storage.PageStore,
	attachments storage.AttachmentStore,
	text *fulltext.Index,
	embedder llm.Embedder,
	store vectorstore.EmbeddingStore,
	table string,
	cfg config.SearchConfig,
) *Retrieval {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.1
	}
	if cfg.Overfetch < 1 {
		cfg.Overfetch = 1.5
	}
	return &Retrieval{
		pages:       pages,
		attachments: attachments,
		text:        text,
		embedder:    embedder,
		store:       store,
		table:       table,
		cfg:         cfg,
	}
}

// Search runs a lexical query against the full-text index.
func (r *Retrieval) Search(ctx context.Context, query string, limit int) ([]fulltext.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if r.text == nil {
		return nil, fmt.Errorf("%w: full-text index is not configured", ErrNotFound)
	}
	if limit <= 0 {
		limit = r.cfg.MaxResults
	}
	results, err := r.text.Search(ctx, query, limit)
	if err != nil {
		return nil, WrapError(err, "full-text search failed")
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "lexical search", "query", query, "results", len(results))
	return results, nil
}

// Similar embeds text and returns the stored documents closest to it, most
// similar first, keeping only hits at or above the threshold.
func (r *Retrieval) Similar(ctx context.Context, text string, opts SimilarOptions) ([]Hit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Message: "cannot be empty"}
	}
	if r.embedder == nil || r.store == nil {
		return nil, fmt.Errorf("%w: similarity search is not configured", ErrNotFound)
	}
	if err := checkFilter(opts.Filter); err != nil {
		return nil, err
	}
	if opts.Max <= 0 {
		opts.Max = r.cfg.MaxResults
	}
	if opts.Threshold == 0 {
		opts.Threshold = r.cfg.Threshold
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, WrapError(err, "failed to embed query")
	}

	want := opts.Max
	if opts.exclude != "" {
		want++
	}
	limit := int(math.Ceil(r.cfg.Overfetch * float64(want)))

	scored, err := r.store.SimilaritySearch(ctx, r.table, vec, limit, opts.Filter)
	if err != nil {
		return nil, WrapError(err, "similarity search failed")
	}

	metric := r.store.Metric()
	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		physical := s.Embedding.Metadata[vectorstore.MetaPhysicalPath]
		if opts.exclude != "" && physical == opts.exclude {
			continue
		}
		similarity := float64(metric.ToSimilarity(s.Score))
		if opts.Threshold > 0 && similarity < opts.Threshold {
			continue
		}
		hits = append(hits, Hit{
			PhysicalPath: physical,
			VirtualPath:  s.Embedding.Metadata[vectorstore.MetaVirtualPath],
			Similarity:   similarity,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > opts.Max {
		hits = hits[:opts.Max]
	}
	return hits, nil
}

// checkFilter rejects a bad filter before the query is embedded. Callers may
// use metadata_json LIKE '%text%' and id = 'value' clauses joined by AND.
func checkFilter(expr string) error {
	f, err := vectorstore.ParseFilter(expr)
	if err != nil {
		return err
	}
	for _, c := range f.Conditions {
		if c.Field != "metadata_json" && c.Field != "id" {
			return fmt.Errorf("%w: unsupported field %q", vectorstore.ErrInvalidFilter, c.Field)
		}
	}
	return nil
}

// Related returns documents similar to the one at path. path is treated as
// physical when it exists on disk, otherwise it is looked up as a virtual path.
// The document itself is never part of the result.
func (r *Retrieval) Related(ctx context.Context, path string, opts SimilarOptions) ([]Hit, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ValidationError{Field: "path", Message: "cannot be empty"}
	}

	physical, err := r.resolvePath(ctx, path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(physical)
	if err != nil {
		return nil, WrapError(err, "failed to read document")
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, &ValidationError{Field: "path", Message: "document is empty"}
	}

	opts.exclude = physical
	return r.Similar(ctx, string(content), opts)
}

func (r *Retrieval) resolvePath(ctx context.Context, path string) (string, error) {
	if storage.FileExists(path) {
		// Stored physical paths are absolute.
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", WrapError(err, "failed to resolve path")
		}
		return abs, nil
	}
	rec, err := r.pages.GetByVirtualPath(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%w: document %s", ErrNotFound, path)
	}
	if err != nil {
		return "", err
	}
	return rec.Path, nil
}

// Files lists the physical paths stored for a vault.
func (r *Retrieval) Files(ctx context.Context, vault string) ([]string, error) {
	if vault == "" {
		return nil, &ValidationError{Field: "vault", Message: "cannot be empty"}
	}
	return r.pages.ListFiles(ctx, vault)
}

// Stats counts documents per vault, attachments and full-text entries.
func (r *Retrieval) Stats(ctx context.Context) (*Stats, error) {
	counts, err := r.pages.CountByVault(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Vaults: counts}
	for _, n := range counts {
		stats.Documents += n
	}
	if r.attachments != nil {
		list, err := r.attachments.List(ctx)
		if err != nil {
			return nil, err
		}
		stats.Attachments = len(list)
	}
	if r.text != nil {
		if stats.FullText, err = r.text.Count(ctx); err != nil {
			return nil, err
		}
		stats.FullTextFTS = r.text.FTS()
	}
	return stats, nil
}

package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/fulltext"
	"vaultindex/internal/storage"
)

// Report lists per-document failures of a full-text build.
type Report struct {
	Failures []Failure
}

func (r *Report) String() string {
	if len(r.Failures) == 0 {
		return "No errors during full-text indexing.\n"
	}
	var b strings.Builder
	b.WriteString("The following errors occurred during full-text indexing:\n")
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "File %q: %v\n", f.Path, f.Err)
	}
	return b.String()
}

// BuildFullTextIndex replaces the full-text index with every markdown document
// in the metadata store. Unreadable files are reported and skipped.
func (p *Pipeline) BuildFullTextIndex(ctx context.Context) (int, *Report, error) {
	logger := contextutil.LoggerFromContext(ctx)

	records, err := p.markdownRecords(ctx)
	if err != nil {
		return 0, nil, err
	}

	report := &Report{}
	docs := make([]fulltext.Document, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return 0, report, err
		}
		doc, err := readDocument(rec.Path)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Path: rec.Path, Err: err})
			continue
		}
		docs = append(docs, doc)
	}

	if err := p.text.Rebuild(ctx, docs); err != nil {
		return 0, report, fmt.Errorf("failed to rebuild full-text index: %w", err)
	}
	logger.InfoContext(ctx, "full-text index rebuilt", "documents", len(docs), "failures", len(report.Failures))
	return len(docs), report, nil
}

// UpdateDocument re-reads one document and replaces its full-text entry.
// path may be physical or virtual.
func (p *Pipeline) UpdateDocument(ctx context.Context, path string) error {
	rec, err := p.Resolve(ctx, path)
	if err != nil {
		return err
	}
	doc, err := readDocument(rec.Path)
	if err != nil {
		return err
	}
	if err := p.text.Upsert(ctx, doc); err != nil {
		return err
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "updated full-text entry", "path", rec.Path)
	return nil
}

// RemoveDocument drops one document from the full-text index and reports
// whether it was present. path may be physical or virtual; a path unknown to
// the metadata store is treated as physical.
func (p *Pipeline) RemoveDocument(ctx context.Context, path string) (bool, error) {
	physical := path
	rec, err := p.Resolve(ctx, path)
	switch {
	case err == nil:
		physical = rec.Path
	case !errors.Is(err, storage.ErrNotFound):
		return false, err
	}
	return p.text.Remove(ctx, physical)
}

// Resolve looks path up as a physical path first, then as a virtual path.
func (p *Pipeline) Resolve(ctx context.Context, path string) (*storage.PageRecord, error) {
	rec, err := p.pages.GetByPath(ctx, path)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	rec, err = p.pages.GetByVirtualPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}
	return rec, nil
}

func readDocument(path string) (fulltext.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return fulltext.Document{}, fmt.Errorf("failed to read file: %w", err)
	}
	body := fulltext.StripFrontmatter(content)
	return fulltext.Document{
		Path:  path,
		Title: fulltext.Title(body, path),
		Body:  string(body),
	}, nil
}

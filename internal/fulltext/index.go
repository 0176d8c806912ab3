// Package fulltext keeps a lexical index of document titles and bodies in SQLite.
//
// The index prefers an FTS5 virtual table ranked with bm25. SQLite builds without
// FTS5 (go-sqlite3 compiled without the sqlite_fts5 tag) get a plain table and
// LIKE matching instead; both expose the same operations.
package fulltext

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"vaultindex/internal/contextutil"
)

// DefaultSnippetLength is the snippet size used when none is configured.
const DefaultSnippetLength = 200

// Title and body weights for ranking. The path column never contributes.
const (
	titleWeight = 2.0
	bodyWeight  = 1.0
)

// Document is one entry of the index, keyed by its physical path.
type Document struct {
	Path  string
	Title string
	Body  string
}

// SearchResult is a ranked hit. Score is higher-is-better.
type SearchResult struct {
	Path    string  `json:"path"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// Index is the full-text index stored in a SQLite database.
type Index struct {
	db         *sql.DB
	fts        bool
	snippetLen int
}

// New prepares the fulltext table in db and returns an index over it.
func New(ctx context.Context, db *sql.DB, snippetLen int) (*Index, error) {
	if snippetLen <= 0 {
		snippetLen = DefaultSnippetLength
	}
	idx := &Index{db: db, snippetLen: snippetLen}

	_, err := db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS fulltext USING fts5(
		title,
		body,
		path UNINDEXED,
		tokenize='porter unicode61'
	)`)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "FTS5 not available, falling back to LIKE search", "error", err)
		if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS fulltext (
			title TEXT,
			body TEXT,
			path TEXT UNIQUE
		)`); err != nil {
			return nil, fmt.Errorf("failed to create fulltext table: %w", err)
		}
	}

	// An existing table decides the mode, whatever the current build supports
	var ddl string
	if err := db.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE name = 'fulltext'`).Scan(&ddl); err != nil {
		return nil, fmt.Errorf("failed to inspect fulltext table: %w", err)
	}
	idx.fts = strings.Contains(strings.ToLower(ddl), "fts5")
	return idx, nil
}

// FTS reports whether the index runs on FTS5.
func (i *Index) FTS() bool { return i.fts }

// Rebuild replaces the whole index with docs.
func (i *Index) Rebuild(ctx context.Context, docs []Document) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fulltext`); err != nil {
		return fmt.Errorf("failed to clear fulltext: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fulltext (title, body, path) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.Title, d.Body, d.Path); err != nil {
			return fmt.Errorf("failed to insert %s: %w", d.Path, err)
		}
	}
	return tx.Commit()
}

// Upsert replaces the entry for doc.Path.
func (i *Index) Upsert(ctx context.Context, doc Document) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fulltext WHERE path = ?`, doc.Path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", doc.Path, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO fulltext (title, body, path) VALUES (?, ?, ?)`,
		doc.Title, doc.Body, doc.Path); err != nil {
		return fmt.Errorf("failed to insert %s: %w", doc.Path, err)
	}
	return tx.Commit()
}

// Remove deletes the entry for path. It reports whether an entry existed.
func (i *Index) Remove(ctx context.Context, path string) (bool, error) {
	res, err := i.db.ExecContext(ctx, `DELETE FROM fulltext WHERE path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fulltext`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fulltext: %w", err)
	}
	return n, nil
}

// Search returns up to limit documents matching any query term, best first.
// A query with no usable terms yields no results.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	terms := queryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	if i.fts {
		return i.searchFTS(ctx, terms, limit)
	}
	return i.searchLike(ctx, terms, limit)
}

func (i *Index) searchFTS(ctx context.Context, terms []string, limit int) ([]SearchResult, error) {
	quoted := make([]string, len(terms))
	for n, t := range terms {
		quoted[n] = `"` + t + `"`
	}
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT path, title, body, bm25(fulltext, %.1f, %.1f, 0.0) AS rank
		FROM fulltext
		WHERE fulltext MATCH ?
		ORDER BY rank, path
		LIMIT ?`, titleWeight, bodyWeight),
		strings.Join(quoted, " OR "), limit)
	if err != nil {
		return nil, fmt.Errorf("fulltext query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var body string
		var rank float64
		if err := rows.Scan(&r.Path, &r.Title, &body, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan fulltext row: %w", err)
		}
		// bm25 is negative, more negative is better
		r.Score = -rank
		r.Snippet = Snippet(body, terms, i.snippetLen)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (i *Index) searchLike(ctx context.Context, terms []string, limit int) ([]SearchResult, error) {
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, 2*len(terms))
	for _, t := range terms {
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(body) LIKE ?)")
		pattern := "%" + t + "%"
		args = append(args, pattern, pattern)
	}
	rows, err := i.db.QueryContext(ctx,
		`SELECT path, title, body FROM fulltext WHERE `+strings.Join(conds, " OR "), args...)
	if err != nil {
		return nil, fmt.Errorf("fulltext query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var body string
		if err := rows.Scan(&r.Path, &r.Title, &body); err != nil {
			return nil, fmt.Errorf("failed to scan fulltext row: %w", err)
		}
		title, lowerBody := strings.ToLower(r.Title), strings.ToLower(body)
		for _, t := range terms {
			if strings.Contains(title, t) {
				r.Score += titleWeight
			}
			if strings.Contains(lowerBody, t) {
				r.Score += bodyWeight
			}
		}
		r.Snippet = Snippet(body, terms, i.snippetLen)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Path < results[b].Path
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// queryTerms lowercases the query, strips FTS5 operator characters and drops duplicates.
func queryTerms(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '(', ')', '*', '^', ':', '{', '}', '+', '-', '%', '_':
			return ' '
		default:
			return r
		}
	}, strings.ToLower(query))

	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.Fields(cleaned) {
		if seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

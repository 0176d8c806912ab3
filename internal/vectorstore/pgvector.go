package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"vaultindex/internal/contextutil"
)

// PgVectorStore implements EmbeddingStore backed by Postgres + pgvector.
// Tables get an ivfflat index sized from the row count of the first insert.
type PgVectorStore struct {
	db     *sql.DB
	dim    int
	params IndexParams
}

// NewPgVectorStore connects to Postgres (with pgvector) and enables the extension.
func NewPgVectorStore(ctx context.Context, dsn string, dim int, params IndexParams) (*PgVectorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	store, err := NewPgVectorStoreFromDB(ctx, db, dim, params)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPgVectorStoreFromDB reuses an existing *sql.DB.
func NewPgVectorStoreFromDB(ctx context.Context, db *sql.DB, dim int, params IndexParams) (*PgVectorStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("failed to enable pgvector: %w", err)
	}
	return &PgVectorStore{db: db, dim: dim, params: params}, nil
}

func indexName(table string) string {
	return table + "_embedding_idx"
}

func (s *PgVectorStore) CreateTable(ctx context.Context, name string) error {
	if err := validTableName(name); err != nil {
		return err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id            text PRIMARY KEY,
  embedding     vector(%d) NOT NULL,
  metadata_json text NOT NULL DEFAULT '{}'
)`, pq.QuoteIdentifier(name), s.dim)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

func (s *PgVectorStore) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, pq.QuoteIdentifier(name)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return exists, nil
}

func (s *PgVectorStore) requireTable(ctx context.Context, name string) error {
	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return nil
}

func (s *PgVectorStore) DropTable(ctx context.Context, name string) error {
	if err := s.requireTable(ctx, name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE `+pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

func (s *PgVectorStore) AddEmbeddings(ctx context.Context, name string, embeddings []DocumentEmbedding) error {
	if err := checkBatch(s.dim, embeddings); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}
	if err := s.requireTable(ctx, name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := fmt.Sprintf(`
INSERT INTO %s (id, embedding, metadata_json)
 VALUES ($1, $2::vector, $3)
 ON CONFLICT (id) DO UPDATE SET
   embedding = EXCLUDED.embedding,
   metadata_json = EXCLUDED.metadata_json`, pq.QuoteIdentifier(name))
	for _, e := range embeddings {
		embLit, err := toVectorLiteral(e.Vector, s.dim)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt, e.ID, embLit, metadataJSON(e.Metadata)); err != nil {
			return fmt.Errorf("insert embedding %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}

	hasIndex, err := s.hasIndex(ctx, name)
	if err != nil {
		return err
	}
	if !hasIndex {
		return s.buildIndex(ctx, name)
	}
	return nil
}

func (s *PgVectorStore) hasIndex(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, pq.QuoteIdentifier(indexName(name))).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check index for %s: %w", name, err)
	}
	return exists, nil
}

// indexLists returns the lists option of the table's ivfflat index, or 0 when
// the index has not been built.
func (s *PgVectorStore) indexLists(ctx context.Context, name string) (int, error) {
	var opts []string
	err := s.db.QueryRowContext(ctx,
		`SELECT reloptions FROM pg_class WHERE oid = to_regclass($1)`,
		pq.QuoteIdentifier(indexName(name)),
	).Scan(pq.Array(&opts))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read index options for %s: %w", name, err)
	}
	return listsOption(opts), nil
}

// listsOption extracts lists=N from a reloptions array.
func listsOption(opts []string) int {
	for _, o := range opts {
		if v, ok := strings.CutPrefix(o, "lists="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

func (s *PgVectorStore) rowCount(ctx context.Context, name string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+pq.QuoteIdentifier(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", name, err)
	}
	return n, nil
}

// buildIndex (re)creates the ivfflat index with lists sized from the current row count.
func (s *PgVectorStore) buildIndex(ctx context.Context, name string) error {
	n, err := s.rowCount(ctx, name)
	if err != nil {
		return err
	}
	lists := s.params.Partitions(n)

	idx := pq.QuoteIdentifier(indexName(name))
	if _, err := s.db.ExecContext(ctx, `DROP INDEX IF EXISTS `+idx); err != nil {
		return fmt.Errorf("failed to drop index for %s: %w", name, err)
	}
	ddl := fmt.Sprintf(`CREATE INDEX %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`,
		idx, pq.QuoteIdentifier(name), lists)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to build index for %s: %w", name, err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "built ivfflat index", "table", name, "rows", n, "lists", lists)
	return nil
}

func (s *PgVectorStore) DeleteEmbeddings(ctx context.Context, name string, ids []string) error {
	if err := s.requireTable(ctx, name); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, pq.QuoteIdentifier(name)),
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// SimilaritySearch orders by cosine distance (<=>). The portable filter is rendered as
// SQL over the id and metadata_json columns. Probes are set per transaction from the
// lists the index was built with.
func (s *PgVectorStore) SimilaritySearch(ctx context.Context, name string, query []float32, limit int, filter string) ([]ScoredEmbedding, error) {
	if err := checkQuery(s.dim, query); err != nil {
		return nil, err
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	if err := s.requireTable(ctx, name); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	embLit, err := toVectorLiteral(query, s.dim)
	if err != nil {
		return nil, err
	}
	lists, err := s.indexLists(ctx, name)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if lists > 0 {
		probes := s.params.Probes(lists)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`SET LOCAL ivfflat.probes = %d`, probes)); err != nil {
			return nil, fmt.Errorf("failed to set probes: %w", err)
		}
	}

	where, filterArgs := f.where(postgresDialect, "", 3)
	q := fmt.Sprintf(`
SELECT id, embedding::text, metadata_json, embedding <=> $1::vector AS distance
FROM %s
%s
ORDER BY distance
LIMIT $2`, pq.QuoteIdentifier(name), where)

	args := append([]any{embLit, limit}, filterArgs...)
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", name, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var hits []ScoredEmbedding
	for rows.Next() {
		var (
			id, vecText, metaJSON string
			distance              float64
		)
		if err := rows.Scan(&id, &vecText, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		vec, err := parseVectorLiteral(vecText)
		if err != nil {
			return nil, err
		}
		meta, err := decodeMetadata(metaJSON)
		if err != nil {
			return nil, err
		}
		hits = append(hits, ScoredEmbedding{
			Embedding: DocumentEmbedding{ID: id, Vector: vec, Metadata: meta},
			Score:     float32(distance),
		})
	}
	return hits, rows.Err()
}

// Optimize rebuilds the ivfflat index for the current row count.
func (s *PgVectorStore) Optimize(ctx context.Context, name string) error {
	if err := s.requireTable(ctx, name); err != nil {
		return err
	}
	return s.buildIndex(ctx, name)
}

func (s *PgVectorStore) Metric() Metric { return CosineDistance }

func (s *PgVectorStore) Dimension() int { return s.dim }

func (s *PgVectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func toVectorLiteral(embedding []float32, dim int) (string, error) {
	if len(embedding) == 0 {
		return "", errors.New("embedding is required")
	}
	if dim > 0 && len(embedding) != dim {
		return "", &DimensionMismatchError{Expected: dim, Actual: len(embedding)}
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ",")), nil
}

func parseVectorLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("%w: vector literal %q", ErrConversion, s)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		return []float32{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: vector literal element %q", ErrConversion, p)
		}
		out[i] = float32(f)
	}
	return out, nil
}

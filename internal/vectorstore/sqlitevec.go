package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"vaultindex/internal/contextutil"
)

func init() {
	sqlite_vec.Auto()
}

// maxKNN is the largest k a vec0 KNN query accepts.
const maxKNN = 4096

const (
	stateCreated = "created"
	stateIndexed = "indexed"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validTableName(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// SQLiteVecStore implements EmbeddingStore on SQLite with the sqlite-vec extension.
// Each table is a row table (<name>) holding ids and metadata plus a vec0 virtual
// table (<name>_vec) whose rowid is the row table's pk.
type SQLiteVecStore struct {
	db  *sql.DB
	dim int
}

// NewSQLiteVecStore opens (or creates) a sqlite-vec database at path.
func NewSQLiteVecStore(path string, dim int) (*SQLiteVecStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store, err := NewSQLiteVecStoreFromDB(db, dim)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteVecStoreFromDB reuses an existing *sql.DB opened with the sqlite3 driver.
func NewSQLiteVecStoreFromDB(db *sql.DB, dim int) (*SQLiteVecStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS vec_tables (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		state TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("failed to create vec_tables: %w", err)
	}
	return &SQLiteVecStore{db: db, dim: dim}, nil
}

func (s *SQLiteVecStore) CreateTable(ctx context.Context, name string) error {
	if err := validTableName(name); err != nil {
		return err
	}

	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM vec_tables WHERE name = ?`, name).Scan(&dim)
	switch {
	case err == nil:
		if dim != s.dim {
			return &DimensionMismatchError{ID: name, Expected: s.dim, Actual: dim}
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to look up table %s: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			pk INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			metadata_json TEXT NOT NULL DEFAULT '{}'
		)`, name),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s_vec USING vec0(
			embedding float[%d] distance_metric=cosine
		)`, name, s.dim),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_tables (name, dimension, state) VALUES (?, ?, ?)`,
		name, s.dim, stateCreated,
	); err != nil {
		return fmt.Errorf("failed to register table %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table %s: %w", name, err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "created vector table", "table", name, "dimension", s.dim)
	return nil
}

func (s *SQLiteVecStore) TableExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_tables WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *SQLiteVecStore) requireTable(ctx context.Context, name string) (string, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM vec_tables WHERE name = ?`, name).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up table %s: %w", name, err)
	}
	return state, nil
}

func (s *SQLiteVecStore) DropTable(ctx context.Context, name string) error {
	if _, err := s.requireTable(ctx, name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s_vec`, name),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, name),
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_tables WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to unregister table %s: %w", name, err)
	}
	return tx.Commit()
}

func (s *SQLiteVecStore) AddEmbeddings(ctx context.Context, name string, embeddings []DocumentEmbedding) error {
	if err := checkBatch(s.dim, embeddings); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}
	state, err := s.requireTable(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, e := range embeddings {
		blob, err := sqlite_vec.SerializeFloat32(e.Vector)
		if err != nil {
			return fmt.Errorf("serialize embedding %s: %w", e.ID, err)
		}

		if err := deleteByID(ctx, tx, name, e.ID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (id, metadata_json) VALUES (?, ?)`, name),
			e.ID, metadataJSON(e.Metadata),
		)
		if err != nil {
			return fmt.Errorf("insert embedding %s: %w", e.ID, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert embedding %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s_vec (rowid, embedding) VALUES (?, ?)`, name),
			rowid, blob,
		); err != nil {
			return fmt.Errorf("insert vector %s: %w", e.ID, err)
		}
	}

	if state == stateCreated {
		// vec0 scans exhaustively; the transition is recorded so the lifecycle matches other backends.
		if _, err := tx.ExecContext(ctx, `UPDATE vec_tables SET state = ? WHERE name = ?`, stateIndexed, name); err != nil {
			return fmt.Errorf("failed to update table state: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	return nil
}

func deleteByID(ctx context.Context, tx *sql.Tx, name, id string) error {
	var rowid int64
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT pk FROM %s WHERE id = ?`, name), id).Scan(&rowid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up embedding %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s_vec WHERE rowid = ?`, name), rowid); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE pk = ?`, name), rowid); err != nil {
		return fmt.Errorf("delete embedding %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteVecStore) DeleteEmbeddings(ctx context.Context, name string, ids []string) error {
	if _, err := s.requireTable(ctx, name); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for _, id := range ids {
		if err := deleteByID(ctx, tx, name, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SimilaritySearch runs a vec0 KNN query. With a filter, the KNN candidate set is
// widened to every row (capped at the vec0 limit) and the filter is applied to the
// joined row table.
func (s *SQLiteVecStore) SimilaritySearch(ctx context.Context, name string, query []float32, limit int, filter string) ([]ScoredEmbedding, error) {
	if err := checkQuery(s.dim, query); err != nil {
		return nil, err
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireTable(ctx, name); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	var rows int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, name)).Scan(&rows); err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	k := min(limit, rows, maxKNN)
	where, filterArgs := f.where(sqliteDialect, "r.", 3)
	if where != "" {
		k = min(rows, maxKNN)
	}

	q := fmt.Sprintf(`
		SELECT r.id, r.metadata_json, v.embedding, v.distance
		FROM (SELECT rowid, embedding, distance FROM %s_vec WHERE embedding MATCH ? AND k = ?) v
		JOIN %s r ON r.pk = v.rowid
		%s
		ORDER BY v.distance
		LIMIT ?`, name, name, where)

	args := append([]any{blob, k}, filterArgs...)
	result, err := s.db.QueryContext(ctx, q, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", name, err)
	}
	defer func() {
		_ = result.Close()
	}()

	var hits []ScoredEmbedding
	for result.Next() {
		var (
			id, metaJSON string
			vecBlob      []byte
			distance     float64
		)
		if err := result.Scan(&id, &metaJSON, &vecBlob, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		vec, err := deserializeFloat32(vecBlob)
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
	return hits, result.Err()
}

// Optimize marks the table indexed. vec0 has no partitioned index to rebuild.
func (s *SQLiteVecStore) Optimize(ctx context.Context, name string) error {
	if _, err := s.requireTable(ctx, name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE vec_tables SET state = ? WHERE name = ?`, stateIndexed, name)
	return err
}

func (s *SQLiteVecStore) Metric() Metric { return CosineDistance }

func (s *SQLiteVecStore) Dimension() int { return s.dim }

func (s *SQLiteVecStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// deserializeFloat32 decodes the little-endian float32 blob vec0 stores.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: vector blob of %d bytes", ErrConversion, len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

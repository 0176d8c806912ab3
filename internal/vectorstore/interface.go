package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedding_store.go -package=mocks vaultindex/internal/vectorstore EmbeddingStore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound is returned when an operation targets a table that does not exist.
	ErrTableNotFound = errors.New("table not found")
	// ErrDimensionMismatch is returned when a vector length differs from the store dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrConversion is returned when a backend payload or id cannot be decoded.
	ErrConversion = errors.New("conversion error")
	// ErrInvalidFilter is returned for filter expressions a backend cannot evaluate.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Metadata keys carried by every DocumentEmbedding.
const (
	MetaPhysicalPath   = "physical_path"
	MetaVirtualPath    = "virtual_path"
	MetaRecordMetadata = "record_metadata"
)

// DocumentEmbedding is one vector with its identifying metadata.
type DocumentEmbedding struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// ScoredEmbedding is a search hit. Score is in the unit of the store's Metric.
type ScoredEmbedding struct {
	Embedding DocumentEmbedding
	Score     float32
}

// DimensionMismatchError reports a vector whose length differs from the store dimension.
type DimensionMismatchError struct {
	ID       string // empty for query vectors
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch for %s: expected %d, got %d", e.ID, e.Expected, e.Actual)
}

// Unwrap lets errors.Is match ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// EmbeddingStore defines the interface for vector storage operations.
// Every backend honours the same contract so callers never branch on the backend.
type EmbeddingStore interface {
	// CreateTable creates a table. It is a no-op if the table already exists.
	CreateTable(ctx context.Context, name string) error

	// TableExists reports whether the table exists.
	TableExists(ctx context.Context, name string) (bool, error)

	// DropTable removes a table and every embedding in it.
	DropTable(ctx context.Context, name string) error

	// AddEmbeddings inserts or replaces embeddings by id.
	// The whole batch is rejected if any vector has the wrong length.
	// The first non-empty insert into a fresh table builds the ANN index.
	AddEmbeddings(ctx context.Context, name string, embeddings []DocumentEmbedding) error

	// DeleteEmbeddings removes embeddings by id. Unknown ids are ignored.
	DeleteEmbeddings(ctx context.Context, name string, ids []string) error

	// SimilaritySearch returns at most limit embeddings closest to query, closest first.
	// filter is a backend-native predicate over the metadata; empty means no filter.
	SimilaritySearch(ctx context.Context, name string, query []float32, limit int, filter string) ([]ScoredEmbedding, error)

	// Optimize rebuilds the ANN index for the current row count.
	Optimize(ctx context.Context, name string) error

	// Metric reports how Score values are to be interpreted.
	Metric() Metric

	// Dimension is the configured vector length.
	Dimension() int

	// Close releases backend resources.
	Close() error
}

// checkBatch validates every vector length before anything is written.
func checkBatch(dim int, embeddings []DocumentEmbedding) error {
	for _, e := range embeddings {
		if e.ID == "" {
			return fmt.Errorf("embedding id is required")
		}
		if len(e.Vector) != dim {
			return &DimensionMismatchError{ID: e.ID, Expected: dim, Actual: len(e.Vector)}
		}
	}
	return nil
}

func checkQuery(dim int, query []float32) error {
	if len(query) != dim {
		return &DimensionMismatchError{Expected: dim, Actual: len(query)}
	}
	return nil
}

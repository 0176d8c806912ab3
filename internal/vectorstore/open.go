package vectorstore

import (
	"context"
	"fmt"

	"vaultindex/internal/config"
)

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.VectorConfig, dim int) (EmbeddingStore, error) {
	params := IndexParamsFromConfig(cfg)

	switch cfg.Backend {
	case config.BackendSQLiteVec, "":
		return NewSQLiteVecStore(cfg.Path, dim)
	case config.BackendMemory:
		metric, err := ParseMetric(cfg.Metric)
		if err != nil {
			return nil, err
		}
		return NewMemoryStore(dim, metric, params), nil
	case config.BackendQdrant:
		return NewQdrantStore(cfg.QdrantURL, dim, params, cfg.EfConstruct)
	case config.BackendPgVector:
		return NewPgVectorStore(ctx, cfg.PostgresDSN, dim, params)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

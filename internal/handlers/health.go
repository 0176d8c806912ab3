package handlers

import (
	"context"
	"net/http"
	"time"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/vectorstore"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	db                 Pinger
	store              vectorstore.EmbeddingStore
	table              string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. store may be nil.
func NewHealthHandler(db Pinger, store vectorstore.EmbeddingStore, table string) *HealthHandler {
	return &HealthHandler{
		db:                 db,
		store:              store,
		table:              table,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP reports the state of the metadata database and the embedding table.
// A missing embedding table only degrades the service, since lexical search still works.
// Returns 200 OK when healthy or degraded, 503 Service Unavailable when unhealthy.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	unhealthy := false

	if err := h.db.PingContext(checkCtx); err != nil {
		logger.WarnContext(ctx, "metadata database health check failed", "error", err)
		checks["metadata_db"] = "error"
		issues = append(issues, "metadata_db_unavailable")
		unhealthy = true
	} else {
		checks["metadata_db"] = "ok"
	}

	switch {
	case h.store == nil:
		checks["vector_store"] = "disabled"
	default:
		exists, err := h.store.TableExists(checkCtx, h.table)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "vector store health check failed", "error", err)
			checks["vector_store"] = "error"
			issues = append(issues, "vector_store_unavailable")
			unhealthy = true
		case !exists:
			checks["vector_store"] = "missing_table"
			issues = append(issues, "embedding_table_missing")
		default:
			checks["vector_store"] = "ok"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	switch {
	case unhealthy:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case len(issues) > 0:
		status = "degraded"
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}

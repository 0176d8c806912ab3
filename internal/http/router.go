package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vaultindex/internal/handlers"
	"vaultindex/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Retriever  handlers.Retriever
	Maintainer handlers.Maintainer
	DB         handlers.Pinger
	Store      vectorstore.EmbeddingStore // nil when embeddings are disabled
	Table      string
	Logger     *slog.Logger
	// JobContext supplies the context for background jobs, typically the server's
	// lifetime context so jobs stop on shutdown.
	JobContext func() context.Context
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.DB, deps.Store, deps.Table))
		r.Method(http.MethodGet, "/search", handlers.NewSearchHandler(deps.Retriever))
		r.Method(http.MethodPost, "/similar", handlers.NewSimilarHandler(deps.Retriever))
		r.Method(http.MethodGet, "/related", handlers.NewRelatedHandler(deps.Retriever))
		r.Method(http.MethodGet, "/files", handlers.NewFilesHandler(deps.Retriever))
		r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(deps.Retriever))
		r.Method(http.MethodGet, "/page", handlers.NewPageHandler(deps.Retriever))
		r.Method(http.MethodGet, "/attachment", handlers.NewAttachmentHandler(deps.Retriever))
		r.Method(http.MethodGet, "/pages", handlers.NewPagesHandler(deps.Retriever))
		r.Method(http.MethodPost, "/scan", handlers.NewScanHandler(deps.Maintainer, deps.JobContext))
		r.Method(http.MethodPost, "/index", handlers.NewIndexHandler(deps.Maintainer, deps.JobContext))
	})

	return r
}

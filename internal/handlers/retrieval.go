package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/fulltext"
	"vaultindex/internal/service"
)

// Retriever is the read side used by the HTTP API.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]fulltext.SearchResult, error)
	Similar(ctx context.Context, text string, opts service.SimilarOptions) ([]service.Hit, error)
	Related(ctx context.Context, path string, opts service.SimilarOptions) ([]service.Hit, error)
	Files(ctx context.Context, vault string) ([]string, error)
	Stats(ctx context.Context) (*service.Stats, error)
	Page(ctx context.Context, virtualPath string) (*service.Page, error)
	Attachment(ctx context.Context, virtualPath string) (*service.Attachment, error)
	Pages(ctx context.Context, fields []string) ([]map[string]string, error)
}

// SearchResponse is returned by the lexical search endpoint.
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []fulltext.SearchResult `json:"results"`
}

// SimilarRequest is the body of POST /api/similar.
type SimilarRequest struct {
	Text      string  `json:"text"`
	Limit     int     `json:"limit,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Filter    string  `json:"filter,omitempty"`
}

// HitsResponse is returned by the similarity endpoints.
type HitsResponse struct {
	Hits []service.Hit `json:"hits"`
}

// SearchHandler serves GET /api/search?q=&limit=.
type SearchHandler struct {
	retriever Retriever
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(retriever Retriever) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer", service.KindInvalidInput.String())
		return
	}

	results, err := h.retriever.Search(ctx, q, limit)
	if err != nil {
		handleServiceError(w, ctx, err, "Search failed")
		return
	}
	if results == nil {
		results = []fulltext.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Results: results})
}

// SimilarHandler serves POST /api/similar.
type SimilarHandler struct {
	retriever Retriever
}

// NewSimilarHandler creates a new SimilarHandler.
func NewSimilarHandler(retriever Retriever) *SimilarHandler {
	return &SimilarHandler{retriever: retriever}
}

func (h *SimilarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body", service.KindInvalidInput.String())
		return
	}

	hits, err := h.retriever.Similar(ctx, req.Text, service.SimilarOptions{
		Max:       req.Limit,
		Threshold: req.Threshold,
		Filter:    req.Filter,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Similarity search failed")
		return
	}
	writeJSON(w, http.StatusOK, HitsResponse{Hits: nonNilHits(hits)})
}

// RelatedHandler serves GET /api/related?path=&limit=&threshold=.
type RelatedHandler struct {
	retriever Retriever
}

// NewRelatedHandler creates a new RelatedHandler.
func NewRelatedHandler(retriever Retriever) *RelatedHandler {
	return &RelatedHandler{retriever: retriever}
}

func (h *RelatedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer", service.KindInvalidInput.String())
		return
	}
	var threshold float64
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		if threshold, err = strconv.ParseFloat(raw, 64); err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be a number", service.KindInvalidInput.String())
			return
		}
	}

	hits, err := h.retriever.Related(ctx, r.URL.Query().Get("path"), service.SimilarOptions{
		Max:       limit,
		Threshold: threshold,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Related search failed")
		return
	}
	writeJSON(w, http.StatusOK, HitsResponse{Hits: nonNilHits(hits)})
}

// FilesHandler serves GET /api/files?vault=.
type FilesHandler struct {
	retriever Retriever
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(retriever Retriever) *FilesHandler {
	return &FilesHandler{retriever: retriever}
}

func (h *FilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vault := r.URL.Query().Get("vault")
	files, err := h.retriever.Files(ctx, vault)
	if err != nil {
		handleServiceError(w, ctx, err, "Listing files failed")
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vault": vault, "files": files})
}

// StatsHandler serves GET /api/stats.
type StatsHandler struct {
	retriever Retriever
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(retriever Retriever) *StatsHandler {
	return &StatsHandler{retriever: retriever}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.retriever.Stats(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func nonNilHits(hits []service.Hit) []service.Hit {
	if hits == nil {
		return []service.Hit{}
	}
	return hits
}

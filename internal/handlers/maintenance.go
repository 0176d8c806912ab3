package handlers

import (
	"context"
	"net/http"
	"runtime/debug"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/service"
)

// Maintainer runs the write-side jobs triggered over HTTP.
type Maintainer interface {
	Acquire() (release func(), err error)
	Scan(ctx context.Context, images bool) (*service.ScanSummary, error)
	Index(ctx context.Context, opts service.IndexOptions) (*service.IndexSummary, error)
}

// JobResponse represents the response from the job endpoints.
type JobResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ScanHandler serves POST /api/scan?images=true.
type ScanHandler struct {
	maintainer Maintainer
	jobCtx     func() context.Context
}

// NewScanHandler creates a new ScanHandler. Jobs run on contexts from jobCtx so
// they outlive the request; a nil jobCtx uses context.Background.
func NewScanHandler(maintainer Maintainer, jobCtx func() context.Context) *ScanHandler {
	return &ScanHandler{maintainer: maintainer, jobCtx: orBackground(jobCtx)}
}

func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	images := r.URL.Query().Get("images") == "true"

	release, err := h.maintainer.Acquire()
	if err != nil {
		handleServiceError(w, ctx, err, "Scan could not start")
		return
	}
	logger.InfoContext(ctx, "scan triggered via API", "images", images)

	// Run in the background so the scan continues after the response is sent
	go func() {
		jobCtx := contextutil.WithAttrs(contextutil.WithLogger(h.jobCtx(), logger), "job", "scan")
		defer finishJob(jobCtx, release)
		logger := contextutil.LoggerFromContext(jobCtx)
		summary, err := h.maintainer.Scan(jobCtx, images)
		if err != nil {
			logger.ErrorContext(jobCtx, "scan failed", "error", err)
			return
		}
		logger.InfoContext(jobCtx, "scan completed", "documents", summary.Documents.Total(),
			"failures", len(summary.Documents.Failures))
	}()

	writeJSON(w, http.StatusAccepted, JobResponse{
		Message: "Scan started. Check server logs for progress.",
		Status:  "accepted",
	})
}

// IndexHandler serves POST /api/index?fulltext=true&embeddings=true.
// With neither parameter both indexes are built.
type IndexHandler struct {
	maintainer Maintainer
	jobCtx     func() context.Context
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(maintainer Maintainer, jobCtx func() context.Context) *IndexHandler {
	return &IndexHandler{maintainer: maintainer, jobCtx: orBackground(jobCtx)}
}

func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	q := r.URL.Query()
	opts := service.IndexOptions{
		FullText:   q.Get("fulltext") == "true",
		Embeddings: q.Get("embeddings") == "true",
	}
	if q.Get("fulltext") == "" && q.Get("embeddings") == "" {
		opts = service.IndexOptions{FullText: true, Embeddings: true}
	}
	if !opts.FullText && !opts.Embeddings {
		writeError(w, http.StatusBadRequest, "select fulltext, embeddings or both", service.KindInvalidInput.String())
		return
	}

	release, err := h.maintainer.Acquire()
	if err != nil {
		handleServiceError(w, ctx, err, "Indexing could not start")
		return
	}
	logger.InfoContext(ctx, "indexing triggered via API", "fulltext", opts.FullText, "embeddings", opts.Embeddings)

	go func() {
		jobCtx := contextutil.WithAttrs(contextutil.WithLogger(h.jobCtx(), logger), "job", "index")
		defer finishJob(jobCtx, release)
		logger := contextutil.LoggerFromContext(jobCtx)
		if _, err := h.maintainer.Index(jobCtx, opts); err != nil {
			logger.ErrorContext(jobCtx, "indexing failed", "error", err)
			return
		}
		logger.InfoContext(jobCtx, "indexing completed")
	}()

	writeJSON(w, http.StatusAccepted, JobResponse{
		Message: "Indexing started. Check server logs for progress.",
		Status:  "accepted",
	})
}

func orBackground(f func() context.Context) func() context.Context {
	if f != nil {
		return f
	}
	return context.Background
}

// finishJob must be deferred directly by a job goroutine. A panic in the job is
// logged instead of crashing the server, and the job slot is released either way.
func finishJob(ctx context.Context, release func()) {
	if r := recover(); r != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "job panicked",
			"panic", r, "stack", string(debug.Stack()))
	}
	release()
}

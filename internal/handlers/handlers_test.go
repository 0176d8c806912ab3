package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"vaultindex/internal/fulltext"
	"vaultindex/internal/service"
	"vaultindex/internal/vault"
	"vaultindex/internal/vectorstore"
	vectorstore_mocks "vaultindex/internal/vectorstore/mocks"
)

// mockRetriever is a hand-written Retriever recording the last call.
type mockRetriever struct {
	results  []fulltext.SearchResult
	hits     []service.Hit
	files    []string
	stats      *service.Stats
	page       *service.Page
	attachment *service.Attachment
	rows       []map[string]string
	err        error
	lastText   string
	lastFields []string
	lastOpts   service.SimilarOptions
}

func (m *mockRetriever) Search(ctx context.Context, query string, limit int) ([]fulltext.SearchResult, error) {
	m.lastText = query
	m.lastOpts = service.SimilarOptions{Max: limit}
	return m.results, m.err
}

func (m *mockRetriever) Similar(ctx context.Context, text string, opts service.SimilarOptions) ([]service.Hit, error) {
	m.lastText, m.lastOpts = text, opts
	return m.hits, m.err
}

func (m *mockRetriever) Related(ctx context.Context, path string, opts service.SimilarOptions) ([]service.Hit, error) {
	m.lastText, m.lastOpts = path, opts
	return m.hits, m.err
}

func (m *mockRetriever) Files(ctx context.Context, vault string) ([]string, error) {
	m.lastText = vault
	return m.files, m.err
}

func (m *mockRetriever) Stats(ctx context.Context) (*service.Stats, error) {
	return m.stats, m.err
}

func (m *mockRetriever) Page(ctx context.Context, virtualPath string) (*service.Page, error) {
	m.lastText = virtualPath
	return m.page, m.err
}

func (m *mockRetriever) Attachment(ctx context.Context, virtualPath string) (*service.Attachment, error) {
	m.lastText = virtualPath
	return m.attachment, m.err
}

func (m *mockRetriever) Pages(ctx context.Context, fields []string) ([]map[string]string, error) {
	m.lastFields = fields
	return m.rows, m.err
}

func TestSearchHandler(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		retriever  *mockRetriever
		wantStatus int
		wantLimit  int
	}{
		{
			name:       "results",
			url:        "/api/search?q=wiki&limit=5",
			retriever:  &mockRetriever{results: []fulltext.SearchResult{{Path: "/v/a.md", Title: "Hello", Score: 1.5, Snippet: "world wiki"}}},
			wantStatus: http.StatusOK,
			wantLimit:  5,
		},
		{
			name:       "bad limit",
			url:        "/api/search?q=wiki&limit=many",
			retriever:  &mockRetriever{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "validation error",
			url:        "/api/search",
			retriever:  &mockRetriever{err: &service.ValidationError{Field: "query", Message: "cannot be empty"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "internal error",
			url:        "/api/search?q=x",
			retriever:  &mockRetriever{err: errors.New("disk on fire")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewSearchHandler(tt.retriever).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
					t.Errorf("error body = %q, %v", w.Body.String(), err)
				}
				return
			}
			var resp SearchResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if resp.Query != "wiki" || len(resp.Results) != 1 || resp.Results[0].Snippet != "world wiki" {
				t.Errorf("response = %+v", resp)
			}
			if tt.retriever.lastOpts.Max != tt.wantLimit {
				t.Errorf("limit passed = %d, want %d", tt.retriever.lastOpts.Max, tt.wantLimit)
			}
		})
	}
}

func TestSimilarHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		retriever  *mockRetriever
		wantStatus int
		wantHits   int
	}{
		{
			name:       "hits",
			body:       `{"text":"gardening","limit":3,"threshold":0.5}`,
			retriever:  &mockRetriever{hits: []service.Hit{{PhysicalPath: "/v/a.md", VirtualPath: "a.md", Similarity: 0.8}}},
			wantStatus: http.StatusOK,
			wantHits:   1,
		},
		{
			name:       "no hits encodes empty list",
			body:       `{"text":"nothing"}`,
			retriever:  &mockRetriever{},
			wantStatus: http.StatusOK,
			wantHits:   0,
		},
		{
			name:       "invalid JSON body",
			body:       "invalid json",
			retriever:  &mockRetriever{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing table",
			body:       `{"text":"x"}`,
			retriever:  &mockRetriever{err: vectorstore.ErrTableNotFound},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "dimension mismatch",
			body:       `{"text":"x"}`,
			retriever:  &mockRetriever{err: &vectorstore.DimensionMismatchError{Expected: 4, Actual: 3}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/similar", bytes.NewBufferString(tt.body))
			NewSimilarHandler(tt.retriever).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp HitsResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if resp.Hits == nil || len(resp.Hits) != tt.wantHits {
				t.Errorf("hits = %+v, want %d", resp.Hits, tt.wantHits)
			}
		})
	}

	r := &mockRetriever{}
	req := httptest.NewRequest(http.MethodPost, "/api/similar", bytes.NewBufferString(`{"text":"t","limit":7,"threshold":0.3,"filter":"a = 'b'"}`))
	NewSimilarHandler(r).ServeHTTP(httptest.NewRecorder(), req)
	if r.lastText != "t" || r.lastOpts.Max != 7 || r.lastOpts.Threshold != 0.3 || r.lastOpts.Filter != "a = 'b'" {
		t.Errorf("options passed = %q, %+v", r.lastText, r.lastOpts)
	}
}

func TestRelatedHandler(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		retriever  *mockRetriever
		wantStatus int
	}{
		{"ok", "/api/related?path=notes/a.md&limit=2&threshold=0.2", &mockRetriever{hits: []service.Hit{{VirtualPath: "b.md"}}}, http.StatusOK},
		{"unknown document", "/api/related?path=nope.md", &mockRetriever{err: service.ErrNotFound}, http.StatusNotFound},
		{"bad threshold", "/api/related?path=a.md&threshold=high", &mockRetriever{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewRelatedHandler(tt.retriever).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	r := &mockRetriever{}
	NewRelatedHandler(r).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/related?path=notes/a.md&limit=2&threshold=0.2", nil))
	if r.lastText != "notes/a.md" || r.lastOpts.Max != 2 || r.lastOpts.Threshold != 0.2 {
		t.Errorf("options passed = %q, %+v", r.lastText, r.lastOpts)
	}
}

func TestFilesAndStatsHandlers(t *testing.T) {
	r := &mockRetriever{
		files: []string{"/v/a.md"},
		stats: &service.Stats{Vaults: map[string]int{"main": 1}, Documents: 1},
	}

	w := httptest.NewRecorder()
	NewFilesHandler(r).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/files?vault=main", nil))
	if w.Code != http.StatusOK || r.lastText != "main" {
		t.Errorf("files status = %d, vault = %q", w.Code, r.lastText)
	}

	w = httptest.NewRecorder()
	NewStatsHandler(r).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var stats service.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil || stats.Documents != 1 {
		t.Errorf("stats = %+v, %v", stats, err)
	}
}

// mockMaintainer signals on done when a job finishes. With panics set the job
// panics right after signalling.
type mockMaintainer struct {
	busy     bool
	panics   bool
	done     chan service.IndexOptions
	released chan struct{}
}

func newMockMaintainer() *mockMaintainer {
	return &mockMaintainer{done: make(chan service.IndexOptions, 1), released: make(chan struct{}, 1)}
}

func (m *mockMaintainer) Acquire() (func(), error) {
	if m.busy {
		return nil, service.ErrBusy
	}
	return func() { m.released <- struct{}{} }, nil
}

func (m *mockMaintainer) Scan(ctx context.Context, images bool) (*service.ScanSummary, error) {
	m.done <- service.IndexOptions{}
	if m.panics {
		panic("scan blew up")
	}
	return &service.ScanSummary{Documents: &vault.Report{}}, nil
}

func (m *mockMaintainer) Index(ctx context.Context, opts service.IndexOptions) (*service.IndexSummary, error) {
	m.done <- opts
	if m.panics {
		panic("index blew up")
	}
	return &service.IndexSummary{}, nil
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for background job")
	}
	var zero T
	return zero
}

func TestIndexHandler(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantOpts   service.IndexOptions
	}{
		{"both by default", "/api/index", http.StatusAccepted, service.IndexOptions{FullText: true, Embeddings: true}},
		{"fulltext only", "/api/index?fulltext=true", http.StatusAccepted, service.IndexOptions{FullText: true}},
		{"nothing selected", "/api/index?fulltext=false", http.StatusBadRequest, service.IndexOptions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockMaintainer()
			w := httptest.NewRecorder()
			NewIndexHandler(m, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusAccepted {
				return
			}
			if got := waitFor(t, m.done); got != tt.wantOpts {
				t.Errorf("Index() options = %+v, want %+v", got, tt.wantOpts)
			}
			waitFor(t, m.released)
		})
	}
}

func TestScanHandler(t *testing.T) {
	m := newMockMaintainer()
	w := httptest.NewRecorder()
	NewScanHandler(m, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	waitFor(t, m.done)
	waitFor(t, m.released)

	busy := newMockMaintainer()
	busy.busy = true
	w = httptest.NewRecorder()
	NewScanHandler(busy, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("busy status = %d, want 409", w.Code)
	}
}

func TestMaintenanceJobs_PanicReleasesSlot(t *testing.T) {
	tests := []struct {
		name    string
		handler func(Maintainer) http.Handler
		url     string
	}{
		{"scan", func(m Maintainer) http.Handler { return NewScanHandler(m, nil) }, "/api/scan"},
		{"index", func(m Maintainer) http.Handler { return NewIndexHandler(m, nil) }, "/api/index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockMaintainer()
			m.panics = true
			w := httptest.NewRecorder()
			tt.handler(m).ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.url, nil))
			if w.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want 202", w.Code)
			}
			waitFor(t, m.done)
			waitFor(t, m.released)
		})
	}
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		setup      func(*vectorstore_mocks.MockEmbeddingStore)
		nilStore   bool
		wantStatus int
		wantState  string
	}{
		{
			name:       "healthy",
			setup:      func(m *vectorstore_mocks.MockEmbeddingStore) { m.EXPECT().TableExists(gomock.Any(), "docs").Return(true, nil) },
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "missing table degrades",
			setup:      func(m *vectorstore_mocks.MockEmbeddingStore) { m.EXPECT().TableExists(gomock.Any(), "docs").Return(false, nil) },
			wantStatus: http.StatusOK,
			wantState:  "degraded",
		},
		{
			name:       "vector store down",
			setup:      func(m *vectorstore_mocks.MockEmbeddingStore) { m.EXPECT().TableExists(gomock.Any(), "docs").Return(false, errors.New("refused")) },
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
		{
			name:       "database down",
			pingErr:    errors.New("closed"),
			nilStore:   true,
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			var store vectorstore.EmbeddingStore
			if !tt.nilStore {
				mock := vectorstore_mocks.NewMockEmbeddingStore(ctrl)
				tt.setup(mock)
				store = mock
			}

			w := httptest.NewRecorder()
			NewHealthHandler(fakePinger{err: tt.pingErr}, store, "docs").
				ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("health status = %q, want %q", resp.Status, tt.wantState)
			}
		})
	}
}

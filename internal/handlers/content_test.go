package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"vaultindex/internal/service"
)

func TestPageHandler(t *testing.T) {
	page := &service.Page{
		Vault:        "main",
		PhysicalPath: "/v/notesy/a.md",
		VirtualPath:  "notes/a.md",
		Metadata:     `{"tags":"x"}`,
		Content:      "---\ntags: x\n---\n# Alpha\n\nSome *body*.",
	}

	tests := []struct {
		name        string
		url         string
		retriever   *mockRetriever
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{"json by default", "/api/page?path=notes/a.md", &mockRetriever{page: page}, http.StatusOK, "application/json", `"virtual_path":"notes/a.md"`},
		{"html", "/api/page?path=notes/a.md&format=html", &mockRetriever{page: page}, http.StatusOK, "text/html; charset=utf-8", "<em>body</em>"},
		{"bad format", "/api/page?path=a.md&format=pdf", &mockRetriever{page: page}, http.StatusBadRequest, "application/json", "format"},
		{"unknown page", "/api/page?path=nope.md", &mockRetriever{err: fmt.Errorf("%w: page nope.md", service.ErrNotFound)}, http.StatusNotFound, "application/json", "not_found"},
		{"empty path", "/api/page", &mockRetriever{err: &service.ValidationError{Field: "path", Message: "cannot be empty"}}, http.StatusBadRequest, "application/json", "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewPageHandler(tt.retriever).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := w.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if !strings.Contains(w.Body.String(), tt.wantContain) {
				t.Errorf("body = %q, want it to contain %q", w.Body.String(), tt.wantContain)
			}
		})
	}

	r := &mockRetriever{page: page}
	w := httptest.NewRecorder()
	NewPageHandler(r).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/page?path=notes/a.md&format=html", nil))
	body := w.Body.String()
	if strings.Contains(body, "tags: x") {
		t.Errorf("rendered page still shows frontmatter: %s", body)
	}
	if !strings.Contains(body, "<title>Alpha (main)</title>") {
		t.Errorf("rendered page title missing: %s", body)
	}
	if r.lastText != "notes/a.md" {
		t.Errorf("path passed = %q, want notes/a.md", r.lastText)
	}
}

func TestAttachmentHandler(t *testing.T) {
	data := []byte("\x89PNG\r\n\x1a\n")
	r := &mockRetriever{attachment: &service.Attachment{VirtualPath: "img/cat.png", ContentType: "image/png", Data: data}}

	w := httptest.NewRecorder()
	NewAttachmentHandler(r).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/attachment?path=img/cat.png", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}
	if got := w.Header().Get("Content-Length"); got != fmt.Sprint(len(data)) {
		t.Errorf("Content-Length = %q, want %d", got, len(data))
	}
	if w.Body.String() != string(data) {
		t.Errorf("body = %q, want %q", w.Body.Bytes(), data)
	}
	if r.lastText != "img/cat.png" {
		t.Errorf("path passed = %q", r.lastText)
	}

	w = httptest.NewRecorder()
	NewAttachmentHandler(&mockRetriever{err: service.ErrNotFound}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/attachment?path=nope.png", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown attachment status = %d, want 404", w.Code)
	}
}

func TestPagesHandler(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		retriever  *mockRetriever
		wantStatus int
		wantFields []string
		wantRows   int
	}{
		{
			name:       "selected fields",
			url:        "/api/pages?fields=vault,%20virtualPath,",
			retriever:  &mockRetriever{rows: []map[string]string{{"vault": "main", "virtualPath": "a.md"}}},
			wantStatus: http.StatusOK,
			wantFields: []string{"vault", "virtualPath"},
			wantRows:   1,
		},
		{
			name:       "no rows encodes empty list",
			url:        "/api/pages?fields=path",
			retriever:  &mockRetriever{},
			wantStatus: http.StatusOK,
			wantFields: []string{"path"},
		},
		{
			name:       "unknown column",
			url:        "/api/pages?fields=title",
			retriever:  &mockRetriever{err: &service.ValidationError{Field: "fields", Message: "unknown column"}},
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"title"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewPagesHandler(tt.retriever).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if !reflect.DeepEqual(tt.retriever.lastFields, tt.wantFields) {
				t.Errorf("fields passed = %q, want %q", tt.retriever.lastFields, tt.wantFields)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp PagesResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if resp.Pages == nil || len(resp.Pages) != tt.wantRows {
				t.Errorf("pages = %v, want %d rows", resp.Pages, tt.wantRows)
			}
		})
	}
}

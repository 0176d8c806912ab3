package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghhtml "github.com/yuin/goldmark/renderer/html"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/fulltext"
	"vaultindex/internal/service"
)

// PagesResponse is returned by GET /api/pages.
type PagesResponse struct {
	Fields []string            `json:"fields"`
	Pages  []map[string]string `json:"pages"`
}

// pageView holds template data for a rendered page.
type pageView struct {
	Title       string
	Vault       string
	VirtualPath string
	Content     template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}} ({{.Vault}})</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 0 auto; padding: 2rem; max-width: 900px; line-height: 1.7; }
    .meta { color: #64748b; font-size: 0.9rem; }
    pre { background: #f1f5f9; padding: 1rem; overflow-x: auto; border-radius: 8px; }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <div class="meta">{{.Vault}} / {{.VirtualPath}}</div>
  </header>
  <article>
{{.Content}}
  </article>
</body>
</html>
`))

// PageHandler serves GET /api/page?path=&format=. The default format is JSON;
// format=html renders the markdown body as a page.
type PageHandler struct {
	retriever Retriever
	markdown  goldmark.Markdown
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(retriever Retriever) *PageHandler {
	return &PageHandler{
		retriever: retriever,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.TaskList,
				extension.Typographer,
			),
			goldmark.WithRendererOptions(
				ghhtml.WithUnsafe(),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "html" {
		writeError(w, http.StatusBadRequest, "format must be json or html", service.KindInvalidInput.String())
		return
	}

	page, err := h.retriever.Page(ctx, r.URL.Query().Get("path"))
	if err != nil {
		handleServiceError(w, ctx, err, "Reading page failed")
		return
	}
	if format != "html" {
		writeJSON(w, http.StatusOK, page)
		return
	}

	body := fulltext.StripFrontmatter([]byte(page.Content))
	rendered, err := h.render(body)
	if err != nil {
		logger.ErrorContext(ctx, "failed to render markdown", "path", page.PhysicalPath, "error", err)
		writeError(w, http.StatusInternalServerError, "Rendering page failed", service.KindUnknown.String())
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageView{
		Title:       fulltext.Title(body, page.VirtualPath),
		Vault:       page.Vault,
		VirtualPath: page.VirtualPath,
		Content:     template.HTML(rendered),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to execute page template", "path", page.PhysicalPath, "error", err)
		writeError(w, http.StatusInternalServerError, "Rendering page failed", service.KindUnknown.String())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *PageHandler) render(content []byte) (string, error) {
	var buf bytes.Buffer
	if err := h.markdown.Convert(content, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// AttachmentHandler serves GET /api/attachment?path= with the raw bytes of the file.
type AttachmentHandler struct {
	retriever Retriever
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(retriever Retriever) *AttachmentHandler {
	return &AttachmentHandler{retriever: retriever}
}

func (h *AttachmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	att, err := h.retriever.Attachment(ctx, r.URL.Query().Get("path"))
	if err != nil {
		handleServiceError(w, ctx, err, "Reading attachment failed")
		return
	}
	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(att.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(att.Data)
}

// PagesHandler serves GET /api/pages?fields=vault,virtualPath.
type PagesHandler struct {
	retriever Retriever
}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler(retriever Retriever) *PagesHandler {
	return &PagesHandler{retriever: retriever}
}

func (h *PagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fields := splitFields(r.URL.Query().Get("fields"))
	rows, err := h.retriever.Pages(ctx, fields)
	if err != nil {
		handleServiceError(w, ctx, err, "Listing pages failed")
		return
	}
	if rows == nil {
		rows = []map[string]string{}
	}
	writeJSON(w, http.StatusOK, PagesResponse{Fields: fields, Pages: rows})
}

// splitFields parses a comma-separated field list, dropping blanks.
func splitFields(raw string) []string {
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

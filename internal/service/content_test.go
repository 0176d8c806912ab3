package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vaultindex/internal/config"
	"vaultindex/internal/storage"
)

func TestRetrieval_PageAndAttachment(t *testing.T) {
	ctx := context.Background()
	pages, attachments, text := newTestStores(t)
	dir := t.TempDir()

	note := filepath.Join(dir, "a.md")
	if err := os.WriteFile(note, []byte("# Alpha\nbody"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	img := filepath.Join(dir, "cat.PNG")
	png := []byte("\x89PNG\r\n\x1a\n")
	if err := os.WriteFile(img, png, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	blob := filepath.Join(dir, "data.unknownext")
	if err := os.WriteFile(blob, []byte{1, 2}, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := pages.Upsert(ctx, &storage.PageRecord{Vault: "main", Path: note, VirtualPath: "notes/a.md", Metadata: `{"tags":"x"}`}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := pages.Upsert(ctx, &storage.PageRecord{Vault: "main", Path: filepath.Join(dir, "gone.md"), VirtualPath: "gone.md"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	for path, virtual := range map[string]string{img: "img/cat.png", blob: "data.bin"} {
		if err := attachments.Upsert(ctx, &storage.AttachmentRecord{Path: path, VirtualPath: virtual, Type: storage.AttachmentTypeImage}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	r := NewRetrieval(pages, attachments, text, nil, nil, "docs", config.SearchConfig{})

	page, err := r.Page(ctx, "notes/a.md")
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if page.Content != "# Alpha\nbody" || page.Metadata != `{"tags":"x"}` || page.PhysicalPath != note || page.Vault != "main" {
		t.Errorf("Page() = %+v", page)
	}

	att, err := r.Attachment(ctx, "img/cat.png")
	if err != nil {
		t.Fatalf("Attachment() error = %v", err)
	}
	if att.ContentType != "image/png" || !bytes.Equal(att.Data, png) {
		t.Errorf("Attachment() = %q, %v", att.ContentType, att.Data)
	}
	att, err = r.Attachment(ctx, "data.bin")
	if err != nil {
		t.Fatalf("Attachment() error = %v", err)
	}
	if att.ContentType != "application/octet-stream" {
		t.Errorf("Attachment() content type = %q, want application/octet-stream", att.ContentType)
	}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"page unknown", func() error { _, err := r.Page(ctx, "nope.md"); return err }, ErrNotFound},
		{"page file removed", func() error { _, err := r.Page(ctx, "gone.md"); return err }, ErrNotFound},
		{"page empty path", func() error { _, err := r.Page(ctx, " "); return err }, ErrInvalidInput},
		{"attachment unknown", func() error { _, err := r.Attachment(ctx, "nope.png"); return err }, ErrNotFound},
		{"attachment empty path", func() error { _, err := r.Attachment(ctx, ""); return err }, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRetrieval_Pages(t *testing.T) {
	ctx := context.Background()
	pages, _, _ := newTestStores(t)
	for _, p := range []string{"/v/a.md", "/v/b.md"} {
		if err := pages.Upsert(ctx, &storage.PageRecord{Vault: "main", Path: p, VirtualPath: filepath.Base(p)}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	r := NewRetrieval(pages, nil, nil, nil, nil, "docs", config.SearchConfig{})

	rows, err := r.Pages(ctx, []string{"virtualPath", "vault"})
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if len(rows) != 2 || rows[0]["virtualPath"] != "a.md" || rows[1]["vault"] != "main" {
		t.Errorf("Pages() = %v", rows)
	}
	if _, ok := rows[0]["path"]; ok {
		t.Errorf("Pages() returned an unrequested column: %v", rows[0])
	}

	for _, fields := range [][]string{nil, {"title"}} {
		if _, err := r.Pages(ctx, fields); KindOf(err) != KindInvalidInput {
			t.Errorf("Pages(%v) kind = %v, want invalid_input", fields, KindOf(err))
		}
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"vaultindex/internal/storage"
)

// Page is a markdown document read back through its virtual path.
type Page struct {
	Vault        string `json:"vault"`
	PhysicalPath string `json:"physical_path"`
	VirtualPath  string `json:"virtual_path"`
	Metadata     string `json:"metadata"` // frontmatter as JSON, empty when the document has none
	Content      string `json:"content"`
}

// Attachment is the raw content of a recorded attachment.
type Attachment struct {
	PhysicalPath string
	VirtualPath  string
	ContentType  string
	Data         []byte
}

const octetStream = "application/octet-stream"

// Page returns the content and frontmatter of the document stored under virtualPath.
func (r *Retrieval) Page(ctx context.Context, virtualPath string) (*Page, error) {
	if strings.TrimSpace(virtualPath) == "" {
		return nil, &ValidationError{Field: "path", Message: "cannot be empty"}
	}
	rec, err := r.pages.GetByVirtualPath(ctx, virtualPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: page %s", ErrNotFound, virtualPath)
	}
	if err != nil {
		return nil, WrapError(err, "failed to look up page")
	}

	content, err := readRecorded(rec.Path, "page")
	if err != nil {
		return nil, err
	}
	return &Page{
		Vault:        rec.Vault,
		PhysicalPath: rec.Path,
		VirtualPath:  rec.VirtualPath,
		Metadata:     rec.Metadata,
		Content:      string(content),
	}, nil
}

// Attachment returns the bytes of the attachment stored under virtualPath and a
// content type guessed from its extension.
func (r *Retrieval) Attachment(ctx context.Context, virtualPath string) (*Attachment, error) {
	if strings.TrimSpace(virtualPath) == "" {
		return nil, &ValidationError{Field: "path", Message: "cannot be empty"}
	}
	if r.attachments == nil {
		return nil, fmt.Errorf("%w: attachment store is not configured", ErrNotFound)
	}
	rec, err := r.attachments.GetByVirtualPath(ctx, virtualPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: attachment %s", ErrNotFound, virtualPath)
	}
	if err != nil {
		return nil, WrapError(err, "failed to look up attachment")
	}

	data, err := readRecorded(rec.Path, "attachment")
	if err != nil {
		return nil, err
	}
	return &Attachment{
		PhysicalPath: rec.Path,
		VirtualPath:  rec.VirtualPath,
		ContentType:  contentType(rec.Path),
		Data:         data,
	}, nil
}

// Pages returns the requested pagetable columns of every recorded document.
func (r *Retrieval) Pages(ctx context.Context, fields []string) ([]map[string]string, error) {
	rows, err := r.pages.QueryByFields(ctx, fields)
	if errors.Is(err, storage.ErrInvalidField) {
		return nil, &ValidationError{Field: "fields", Message: err.Error()}
	}
	if err != nil {
		return nil, WrapError(err, "failed to query pages")
	}
	return rows, nil
}

// readRecorded reads a file the metadata store points at. A file removed since
// the last scan is reported as not found.
func readRecorded(path, what string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s file %s is gone", ErrNotFound, what, path)
	}
	if err != nil {
		return nil, WrapError(err, "failed to read "+what)
	}
	return data, nil
}

func contentType(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	return octetStream
}

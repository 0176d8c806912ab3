package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_page_store.go -package=mocks vaultindex/internal/storage PageStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidField is returned by QueryByFields for a column outside the pagetable schema.
	ErrInvalidField = errors.New("invalid pagetable field")
)

// PageStore defines the interface for pagetable operations.
type PageStore interface {
	// Upsert inserts a page or, when its physical path is already known, updates it in place.
	Upsert(ctx context.Context, page *PageRecord) error
	// GetByPath returns the page stored under a physical path, or ErrNotFound.
	GetByPath(ctx context.Context, path string) (*PageRecord, error)
	// GetByVirtualPath returns the first page with the given virtual path, or ErrNotFound.
	GetByVirtualPath(ctx context.Context, virtualPath string) (*PageRecord, error)
	// FileTree returns every page ordered by virtual path.
	FileTree(ctx context.Context) ([]PageRecord, error)
	// ListFiles returns the physical paths of every page in a vault.
	ListFiles(ctx context.Context, vault string) ([]string, error)
	// CountByVault returns the number of pages per vault.
	CountByVault(ctx context.Context) (map[string]int, error)
	// QueryByFields returns the requested columns of every page.
	QueryByFields(ctx context.Context, fields []string) ([]map[string]string, error)
	// CleanupStale deletes pages whose file no longer exists and returns them.
	CleanupStale(ctx context.Context, exists func(path string) bool) ([]PageRecord, error)
}

// PageRepo provides methods for pagetable operations.
// It implements the PageStore interface.
type PageRepo struct {
	db *sql.DB
}

// NewPageRepo creates a new PageRepo.
func NewPageRepo(db *sql.DB) *PageRepo {
	return &PageRepo{db: db}
}

const pageSelect = `SELECT id, COALESCE(vault, ''), path, COALESCE(virtualPath, ''), COALESCE(metadata, ''),
	COALESCE(last_modified, ''), COALESCE(created, '') FROM pagetable`

// Upsert inserts a page or updates the row with the same physical path.
// The last write wins for vault, virtual path, metadata and timestamps.
func (r *PageRepo) Upsert(ctx context.Context, page *PageRecord) error {
	if page.Path == "" {
		return fmt.Errorf("page path is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pagetable (vault, path, virtualPath, metadata, last_modified, created)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   vault = excluded.vault,
		   virtualPath = excluded.virtualPath,
		   metadata = excluded.metadata,
		   last_modified = excluded.last_modified,
		   created = excluded.created`,
		page.Vault, page.Path, page.VirtualPath, page.Metadata, page.LastModified, page.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	return nil
}

// GetByPath gets a page by physical path.
// Returns nil and ErrNotFound if not found.
func (r *PageRepo) GetByPath(ctx context.Context, path string) (*PageRecord, error) {
	return r.getOne(ctx, pageSelect+" WHERE path = ?", path)
}

// GetByVirtualPath gets the oldest page with the given virtual path.
// Several physical files may share a virtual path; the first inserted wins.
func (r *PageRepo) GetByVirtualPath(ctx context.Context, virtualPath string) (*PageRecord, error) {
	return r.getOne(ctx, pageSelect+" WHERE virtualPath = ? ORDER BY id LIMIT 1", virtualPath)
}

func (r *PageRepo) getOne(ctx context.Context, query string, arg string) (*PageRecord, error) {
	var page PageRecord
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&page.ID, &page.Vault, &page.Path, &page.VirtualPath, &page.Metadata, &page.LastModified, &page.Created,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	return &page, nil
}

// FileTree returns every page ordered by virtual path.
func (r *PageRepo) FileTree(ctx context.Context) ([]PageRecord, error) {
	rows, err := r.db.QueryContext(ctx, pageSelect+" ORDER BY virtualPath ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query file tree: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var pages []PageRecord
	for rows.Next() {
		var page PageRecord
		if err := rows.Scan(&page.ID, &page.Vault, &page.Path, &page.VirtualPath, &page.Metadata, &page.LastModified, &page.Created); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}

	return pages, nil
}

// ListFiles returns the physical paths stored for a vault, sorted.
func (r *PageRepo) ListFiles(ctx context.Context, vault string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT path FROM pagetable WHERE vault = ? ORDER BY path", vault)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// CountByVault returns the number of pages stored for each vault.
func (r *PageRepo) CountByVault(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT COALESCE(vault, ''), COUNT(*) FROM pagetable GROUP BY vault")
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var vault string
		var count int
		if err := rows.Scan(&vault, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[vault] = count
	}
	return counts, rows.Err()
}

// QueryByFields selects the requested columns from every page.
// Column names are checked against the pagetable schema; NULL values become empty strings.
func (r *PageRepo) QueryByFields(ctx context.Context, fields []string) ([]map[string]string, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: at least one field is required", ErrInvalidField)
	}
	for _, f := range fields {
		if !pageColumns[f] {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidField, f)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM pagetable ORDER BY id", strings.Join(fields, ", "))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fields: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []map[string]string
	values := make([]sql.NullString, len(fields))
	dest := make([]any, len(fields))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan fields: %w", err)
		}
		row := make(map[string]string, len(fields))
		for i, f := range fields {
			row[f] = values[i].String
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// CleanupStale deletes every page whose physical file no longer exists.
// A nil exists func checks the filesystem.
func (r *PageRepo) CleanupStale(ctx context.Context, exists func(path string) bool) ([]PageRecord, error) {
	if exists == nil {
		exists = FileExists
	}

	pages, err := r.FileTree(ctx)
	if err != nil {
		return nil, err
	}

	var stale []PageRecord
	for _, page := range pages {
		if !exists(page.Path) {
			stale = append(stale, page)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, page := range stale {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pagetable WHERE id = ?", page.ID); err != nil {
			return nil, fmt.Errorf("failed to delete stale page %s: %w", page.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	return stale, nil
}

// FileExists reports whether path exists on disk.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// AttachmentStore defines the interface for attachment storage operations.
type AttachmentStore interface {
	Upsert(ctx context.Context, attachment *AttachmentRecord) error
	GetByPath(ctx context.Context, path string) (*AttachmentRecord, error)
	GetByVirtualPath(ctx context.Context, virtualPath string) (*AttachmentRecord, error)
	List(ctx context.Context) ([]AttachmentRecord, error)
	CleanupStale(ctx context.Context, exists func(path string) bool) ([]AttachmentRecord, error)
}

// AttachmentRepo provides methods for attachment operations.
type AttachmentRepo struct {
	db *sql.DB
}

// NewAttachmentRepo creates a new AttachmentRepo.
func NewAttachmentRepo(db *sql.DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

// Upsert inserts an attachment or updates the row with the same physical path.
func (r *AttachmentRepo) Upsert(ctx context.Context, attachment *AttachmentRecord) error {
	if attachment.Path == "" {
		return fmt.Errorf("attachment path is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attachments (path, virtualPath, type)
		 VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   virtualPath = excluded.virtualPath,
		   type = excluded.type`,
		attachment.Path, attachment.VirtualPath, attachment.Type,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attachment: %w", err)
	}
	return nil
}

// GetByPath gets an attachment by physical path.
// Returns nil and ErrNotFound if not found.
func (r *AttachmentRepo) GetByPath(ctx context.Context, path string) (*AttachmentRecord, error) {
	var a AttachmentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, path, COALESCE(virtualPath, ''), COALESCE(type, '') FROM attachments WHERE path = ?",
		path,
	).Scan(&a.ID, &a.Path, &a.VirtualPath, &a.Type)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attachment: %w", err)
	}
	return &a, nil
}

// GetByVirtualPath returns the first attachment with the given virtual path.
// Returns nil and ErrNotFound if none matches.
func (r *AttachmentRepo) GetByVirtualPath(ctx context.Context, virtualPath string) (*AttachmentRecord, error) {
	var a AttachmentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, path, COALESCE(virtualPath, ''), COALESCE(type, '') FROM attachments WHERE virtualPath = ? ORDER BY id LIMIT 1",
		virtualPath,
	).Scan(&a.ID, &a.Path, &a.VirtualPath, &a.Type)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attachment: %w", err)
	}
	return &a, nil
}

// List returns every attachment ordered by virtual path.
func (r *AttachmentRepo) List(ctx context.Context) ([]AttachmentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, path, COALESCE(virtualPath, ''), COALESCE(type, '') FROM attachments ORDER BY virtualPath, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var attachments []AttachmentRecord
	for rows.Next() {
		var a AttachmentRecord
		if err := rows.Scan(&a.ID, &a.Path, &a.VirtualPath, &a.Type); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// CleanupStale deletes attachments whose file no longer exists and returns them.
func (r *AttachmentRepo) CleanupStale(ctx context.Context, exists func(path string) bool) ([]AttachmentRecord, error) {
	if exists == nil {
		exists = FileExists
	}

	attachments, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	var stale []AttachmentRecord
	for _, a := range attachments {
		if exists(a.Path) {
			continue
		}
		if _, err := r.db.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", a.ID); err != nil {
			return stale, fmt.Errorf("failed to delete stale attachment %s: %w", a.Path, err)
		}
		stale = append(stale, a)
	}
	return stale, nil
}

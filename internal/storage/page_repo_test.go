package storage

import (
	"context"
	"errors"
	"testing"
)

func TestPageRepo_Upsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewPageRepo(db)
	ctx := context.Background()

	first := &PageRecord{
		Vault:        "main",
		Path:         "/vaults/main/a.md",
		VirtualPath:  "a.md",
		Metadata:     "",
		LastModified: "2024-01-01T00:00:00Z",
		Created:      "2024-01-01T00:00:00Z",
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := &PageRecord{
		Vault:        "main",
		Path:         "/vaults/main/a.md",
		VirtualPath:  "projects/a.md",
		Metadata:     `{"folder":"projects"}`,
		LastModified: "2024-02-01T00:00:00Z",
		Created:      "2024-01-01T00:00:00Z",
	}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM pagetable WHERE path = ?", first.Path).Scan(&count); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 1 {
		t.Fatalf("rows for path = %d, want 1", count)
	}

	got, err := repo.GetByPath(ctx, first.Path)
	if err != nil {
		t.Fatalf("GetByPath() error = %v", err)
	}
	if got.VirtualPath != "projects/a.md" {
		t.Errorf("VirtualPath = %q, want projects/a.md", got.VirtualPath)
	}
	if got.Metadata != `{"folder":"projects"}` {
		t.Errorf("Metadata = %q, want frontmatter JSON", got.Metadata)
	}
	if got.LastModified != "2024-02-01T00:00:00Z" {
		t.Errorf("LastModified = %q, want latest scan value", got.LastModified)
	}
}

func TestPageRepo_UpsertRequiresPath(t *testing.T) {
	repo := NewPageRepo(newTestDB(t))
	if err := repo.Upsert(context.Background(), &PageRecord{Vault: "main"}); err == nil {
		t.Error("Upsert() expected error for empty path, got nil")
	}
}

func TestPageRepo_Lookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewPageRepo(db)
	ctx := context.Background()

	pages := []*PageRecord{
		{Vault: "main", Path: "/v/main/b.md", VirtualPath: "b.md"},
		{Vault: "main", Path: "/v/main/a.md", VirtualPath: "a.md"},
		{Vault: "work", Path: "/v/work/c.md", VirtualPath: "notes/c.md"},
	}
	for _, p := range pages {
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	tests := []struct {
		name        string
		virtualPath string
		wantPath    string
		wantErr     error
	}{
		{name: "existing virtual path", virtualPath: "notes/c.md", wantPath: "/v/work/c.md"},
		{name: "missing virtual path", virtualPath: "nope.md", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByVirtualPath(ctx, tt.virtualPath)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("GetByVirtualPath() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetByVirtualPath() error = %v", err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
		})
	}

	tree, err := repo.FileTree(ctx)
	if err != nil {
		t.Fatalf("FileTree() error = %v", err)
	}
	wantOrder := []string{"a.md", "b.md", "notes/c.md"}
	if len(tree) != len(wantOrder) {
		t.Fatalf("FileTree() len = %d, want %d", len(tree), len(wantOrder))
	}
	for i, vp := range wantOrder {
		if tree[i].VirtualPath != vp {
			t.Errorf("FileTree()[%d] = %q, want %q", i, tree[i].VirtualPath, vp)
		}
	}

	files, err := repo.ListFiles(ctx, "main")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 || files[0] != "/v/main/a.md" {
		t.Errorf("ListFiles(main) = %v", files)
	}

	counts, err := repo.CountByVault(ctx)
	if err != nil {
		t.Fatalf("CountByVault() error = %v", err)
	}
	if counts["main"] != 2 || counts["work"] != 1 {
		t.Errorf("CountByVault() = %v, want main:2 work:1", counts)
	}
}

func TestPageRepo_QueryByFields(t *testing.T) {
	repo := NewPageRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, &PageRecord{Vault: "main", Path: "/v/a.md", VirtualPath: "a.md"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rows, err := repo.QueryByFields(ctx, []string{"path", "virtualPath", "id"})
	if err != nil {
		t.Fatalf("QueryByFields() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("QueryByFields() rows = %d, want 1", len(rows))
	}
	if rows[0]["path"] != "/v/a.md" || rows[0]["virtualPath"] != "a.md" || rows[0]["id"] != "1" {
		t.Errorf("QueryByFields() row = %v", rows[0])
	}

	if _, err := repo.QueryByFields(ctx, []string{"path; DROP TABLE pagetable"}); !errors.Is(err, ErrInvalidField) {
		t.Errorf("QueryByFields() unknown column error = %v, want ErrInvalidField", err)
	}
	if _, err := repo.QueryByFields(ctx, nil); !errors.Is(err, ErrInvalidField) {
		t.Errorf("QueryByFields() no fields error = %v, want ErrInvalidField", err)
	}
}

func TestPageRepo_CleanupStale(t *testing.T) {
	repo := NewPageRepo(newTestDB(t))
	ctx := context.Background()

	for _, p := range []string{"/v/keep.md", "/v/gone.md"} {
		if err := repo.Upsert(ctx, &PageRecord{Vault: "main", Path: p, VirtualPath: p}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	stale, err := repo.CleanupStale(ctx, func(path string) bool { return path == "/v/keep.md" })
	if err != nil {
		t.Fatalf("CleanupStale() error = %v", err)
	}
	if len(stale) != 1 || stale[0].Path != "/v/gone.md" {
		t.Errorf("CleanupStale() = %v, want only /v/gone.md", stale)
	}

	if _, err := repo.GetByPath(ctx, "/v/gone.md"); err != ErrNotFound {
		t.Errorf("GetByPath(gone) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByPath(ctx, "/v/keep.md"); err != nil {
		t.Errorf("GetByPath(keep) error = %v", err)
	}
}

package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"vaultindex/internal/storage"
	"vaultindex/internal/storage/mocks"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
}

func newTestRepos(t *testing.T) (*storage.PageRepo, *storage.AttachmentRepo) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("storage.Migrate() error = %v", err)
	}
	return storage.NewPageRepo(db), storage.NewAttachmentRepo(db)
}

func TestScanner_ScanDocuments(t *testing.T) {
	root := filepath.Join(t.TempDir(), "notesy", "main")
	writeFile(t, filepath.Join(root, "a.md"), "# Hello\nworld wiki")
	writeFile(t, filepath.Join(root, "b.md"), "---\nfolder: projects\n---\n# B\nbody")
	writeFile(t, filepath.Join(root, "sub", "c.markdown"), "plain")
	writeFile(t, filepath.Join(root, "skip.txt"), "not markdown")
	writeFile(t, filepath.Join(root, ".obsidian", "hidden.md"), "hidden")

	pages, attachments := newTestRepos(t)
	scanner := NewScanner(pages, attachments, "notesy", 2)
	ctx := context.Background()
	vaults := []Vault{{Name: "main", Paths: []string{root}}}

	files, report, err := scanner.ScanDocuments(ctx, vaults)
	if err != nil {
		t.Fatalf("ScanDocuments() error = %v", err)
	}
	if len(report.Failures) != 0 {
		t.Errorf("ScanDocuments() failures = %v", report.Failures)
	}
	if len(files) != 3 {
		t.Fatalf("ScanDocuments() returned %d files, want 3", len(files))
	}
	if report.Counts["main"] != 3 {
		t.Errorf("report count = %d, want 3", report.Counts["main"])
	}

	want := map[string]string{
		"a.md":           "main/a.md",
		"b.md":           "projects/main/b.md",
		"sub/c.markdown": "main/sub/c.markdown",
	}
	for rel, wantVP := range want {
		page, err := pages.GetByPath(ctx, filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("GetByPath(%s) error = %v", rel, err)
		}
		if page.VirtualPath != wantVP {
			t.Errorf("VirtualPath(%s) = %q, want %q", rel, page.VirtualPath, wantVP)
		}
		if page.Vault != "main" {
			t.Errorf("Vault(%s) = %q, want main", rel, page.Vault)
		}
		if page.LastModified == "" || page.Created == "" {
			t.Errorf("timestamps missing for %s: %+v", rel, page)
		}
	}

	b, _ := pages.GetByPath(ctx, filepath.Join(root, "b.md"))
	if !strings.Contains(b.Metadata, `"folder":"projects"`) {
		t.Errorf("Metadata = %q, want frontmatter JSON", b.Metadata)
	}
	a, _ := pages.GetByPath(ctx, filepath.Join(root, "a.md"))
	if a.Metadata != "" {
		t.Errorf("Metadata without frontmatter = %q, want empty", a.Metadata)
	}

	// Rescanning must not duplicate rows
	if _, _, err := scanner.ScanDocuments(ctx, vaults); err != nil {
		t.Fatalf("second ScanDocuments() error = %v", err)
	}
	tree, err := pages.FileTree(ctx)
	if err != nil {
		t.Fatalf("FileTree() error = %v", err)
	}
	if len(tree) != 3 {
		t.Errorf("FileTree() len after rescan = %d, want 3", len(tree))
	}
}

func TestScanner_ScanDocuments_SkipsPathsWithoutIndicator(t *testing.T) {
	root := filepath.Join(t.TempDir(), "elsewhere")
	writeFile(t, filepath.Join(root, "a.md"), "# A")

	pages, attachments := newTestRepos(t)
	scanner := NewScanner(pages, attachments, "notesy", 1)

	files, report, err := scanner.ScanDocuments(context.Background(), []Vault{{Name: "main", Paths: []string{root}}})
	if err != nil {
		t.Fatalf("ScanDocuments() error = %v", err)
	}
	if len(files) != 0 || report.Total() != 0 {
		t.Errorf("ScanDocuments() files = %d, total = %d, want 0", len(files), report.Total())
	}
}

func TestScanner_ScanDocuments_RecordsFailures(t *testing.T) {
	root := filepath.Join(t.TempDir(), "notesy", "main")
	writeFile(t, filepath.Join(root, "a.md"), "# A")
	writeFile(t, filepath.Join(root, "b.md"), "# B")

	ctrl := gomock.NewController(t)
	pages := mocks.NewMockPageStore(ctrl)
	pages.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *storage.PageRecord) error {
			if strings.HasSuffix(p.Path, "b.md") {
				return errors.New("disk full")
			}
			return nil
		}).Times(2)

	scanner := NewScanner(pages, nil, "notesy", 2)
	files, report, err := scanner.ScanDocuments(context.Background(), []Vault{{Name: "main", Paths: []string{root}}})
	if err != nil {
		t.Fatalf("ScanDocuments() error = %v", err)
	}
	if len(files) != 1 {
		t.Errorf("ScanDocuments() files = %d, want 1", len(files))
	}
	if len(report.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(report.Failures))
	}
	if !strings.Contains(report.Failures[0].Err.Error(), "DB insert error") {
		t.Errorf("failure = %v, want DB insert error", report.Failures[0].Err)
	}

	out := report.String()
	for _, want := range []string{
		"The following errors occurred during markdown scanning:",
		"disk full",
		"Markdown scanning summary:",
		"Vault main: 1 markdown files scanned.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report.String() missing %q in:\n%s", want, out)
		}
	}
}

func TestScanner_ScanDocuments_MissingRoot(t *testing.T) {
	pages, attachments := newTestRepos(t)
	scanner := NewScanner(pages, attachments, "notesy", 1)

	missing := filepath.Join(t.TempDir(), "notesy", "gone")
	_, report, err := scanner.ScanDocuments(context.Background(), []Vault{{Name: "gone", Paths: []string{missing}}})
	if err != nil {
		t.Fatalf("ScanDocuments() error = %v", err)
	}
	if len(report.Failures) != 1 {
		t.Errorf("failures = %d, want 1", len(report.Failures))
	}
}

func TestScanner_ScanDocuments_Cancelled(t *testing.T) {
	root := filepath.Join(t.TempDir(), "notesy", "main")
	writeFile(t, filepath.Join(root, "a.md"), "# A")

	pages, attachments := newTestRepos(t)
	scanner := NewScanner(pages, attachments, "notesy", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := scanner.ScanDocuments(ctx, []Vault{{Name: "main", Paths: []string{root}}}); !errors.Is(err, context.Canceled) {
		t.Errorf("ScanDocuments() error = %v, want context.Canceled", err)
	}
}

func TestScanner_ScanAttachments(t *testing.T) {
	root := filepath.Join(t.TempDir(), "notesy", "main")
	writeFile(t, filepath.Join(root, "img", "cat.PNG"), "png")
	writeFile(t, filepath.Join(root, "img", "dog.jpeg"), "jpeg")
	writeFile(t, filepath.Join(root, "note.md"), "# not an image")

	pages, attachments := newTestRepos(t)
	scanner := NewScanner(pages, attachments, "notesy", 1)
	ctx := context.Background()

	report, err := scanner.ScanAttachments(ctx, []Vault{{Name: "main", Paths: []string{root}}})
	if err != nil {
		t.Fatalf("ScanAttachments() error = %v", err)
	}
	if report.Total() != 2 {
		t.Errorf("Total() = %d, want 2", report.Total())
	}

	list, err := attachments.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() len = %d, want 2", len(list))
	}
	for _, a := range list {
		if a.Type != storage.AttachmentTypeImage {
			t.Errorf("Type = %q, want image", a.Type)
		}
		if !strings.HasPrefix(a.VirtualPath, "main/img/") {
			t.Errorf("VirtualPath = %q", a.VirtualPath)
		}
	}

	out := report.String()
	if !strings.Contains(out, "No errors during image scanning.") || !strings.Contains(out, "Vault main: 2 images scanned.") {
		t.Errorf("Report.String() = %q", out)
	}
}

func TestReport_String_Empty(t *testing.T) {
	r := newReport(KindMarkdown)
	want := "No errors during markdown scanning.\n\nMarkdown scanning summary:\n"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/storage"
)

// MarkdownExtensions are the document extensions written to pagetable.
var MarkdownExtensions = map[string]bool{"md": true, "markdown": true}

// ImageExtensions are the attachment extensions written to the attachments table.
var ImageExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "svg": true}

// ScannedFile represents a file found during vault scanning.
type ScannedFile struct {
	Vault        string
	Path         string         // Absolute physical path
	VirtualPath  string         // Logical path, see ExtractVirtualPath and ApplyFolder
	Metadata     map[string]any // Frontmatter, nil when absent
	LastModified time.Time
	Created      time.Time
}

// MetadataJSON returns the frontmatter serialized as JSON, or "" when there is none.
func (f *ScannedFile) MetadataJSON() (string, error) {
	if f.Metadata == nil {
		return "", nil
	}
	data, err := json.Marshal(f.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	return string(data), nil
}

// Scanner walks vault roots and records what it finds in the metadata store.
type Scanner struct {
	pages       storage.PageStore
	attachments storage.AttachmentStore
	indicator   string
	workers     int
}

// NewScanner creates a scanner. workers <= 0 uses one worker per CPU.
func NewScanner(pages storage.PageStore, attachments storage.AttachmentStore, indicator string, workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{
		pages:       pages,
		attachments: attachments,
		indicator:   indicator,
		workers:     workers,
	}
}

type scanTask struct {
	vault string
	path  string
}

type scanResult struct {
	file *ScannedFile
	path string
	err  error
}

// ScanDocuments scans every vault for markdown files and upserts them into pagetable.
// Files are processed by a pool of workers; a single writer goroutine owns every upsert.
// Per-file failures are collected in the report; only context cancellation aborts the scan.
func (s *Scanner) ScanDocuments(ctx context.Context, vaults []Vault) ([]ScannedFile, *Report, error) {
	logger := contextutil.LoggerFromContext(ctx)
	report := newReport(KindMarkdown)

	tasks := make(chan scanTask, s.workers*2)
	results := make(chan scanResult, s.workers*2)

	// Producer: walk every root
	go func() {
		defer close(tasks)
		for _, v := range vaults {
			for _, root := range v.Paths {
				err := walkFiles(ctx, root, MarkdownExtensions, func(path string) error {
					if _, err := ExtractVirtualPath(path, s.indicator); err != nil {
						return nil
					}
					select {
					case tasks <- scanTask{vault: v.Name, path: path}:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				})
				if err != nil && ctx.Err() == nil {
					results <- scanResult{path: root, err: fmt.Errorf("failed to walk vault %s: %w", v.Name, err)}
				}
			}
		}
	}()

	// Workers: resolve paths, parse frontmatter, stat files
	var wg sync.WaitGroup
	for range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				file, err := s.processFile(task.vault, task.path)
				results <- scanResult{file: file, path: task.path, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Single writer
	var files []ScannedFile
	for res := range results {
		if res.err != nil {
			report.addFailure(res.path, res.err)
			continue
		}
		if err := s.writePage(ctx, res.file); err != nil {
			report.addFailure(res.path, fmt.Errorf("DB insert error: %w", err))
			continue
		}
		report.addScanned(res.file.Vault)
		files = append(files, *res.file)
	}

	if err := ctx.Err(); err != nil {
		return files, report, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	logger.InfoContext(ctx, "markdown scan completed", "files", len(files), "failures", len(report.Failures))
	return files, report, nil
}

// ScanAttachments scans every vault for images and upserts them into the attachments table.
// Attachment volume is small, so this runs sequentially.
func (s *Scanner) ScanAttachments(ctx context.Context, vaults []Vault) (*Report, error) {
	logger := contextutil.LoggerFromContext(ctx)
	report := newReport(KindImage)

	for _, v := range vaults {
		for _, root := range v.Paths {
			err := walkFiles(ctx, root, ImageExtensions, func(path string) error {
				if _, err := ExtractVirtualPath(path, s.indicator); err != nil {
					return nil
				}
				file, err := s.processFile(v.Name, path)
				if err != nil {
					report.addFailure(path, err)
					return nil
				}
				err = s.attachments.Upsert(ctx, &storage.AttachmentRecord{
					Path:        file.Path,
					VirtualPath: file.VirtualPath,
					Type:        storage.AttachmentTypeImage,
				})
				if err != nil {
					report.addFailure(path, fmt.Errorf("DB insert error: %w", err))
					return nil
				}
				report.addScanned(v.Name)
				return nil
			})
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				report.addFailure(root, fmt.Errorf("failed to walk vault %s: %w", v.Name, err))
			}
		}
	}

	logger.InfoContext(ctx, "image scan completed", "files", report.Total(), "failures", len(report.Failures))
	return report, nil
}

// ScanFile resolves a single file of a vault and records it in the page store.
func (s *Scanner) ScanFile(ctx context.Context, vaultName, path string) (*ScannedFile, error) {
	file, err := s.processFile(vaultName, path)
	if err != nil {
		return nil, err
	}
	if err := s.writePage(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", path, err)
	}
	return file, nil
}

func (s *Scanner) processFile(vaultName, path string) (*ScannedFile, error) {
	virtualPath, err := ExtractVirtualPath(path, s.indicator)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	modified, created := fileTimes(path, info)

	fm := parseFrontmatterFile(path)
	virtualPath = ApplyFolder(virtualPath, fm)

	return &ScannedFile{
		Vault:        vaultName,
		Path:         path,
		VirtualPath:  virtualPath,
		Metadata:     fm,
		LastModified: modified,
		Created:      created,
	}, nil
}

func (s *Scanner) writePage(ctx context.Context, file *ScannedFile) error {
	metadata, err := file.MetadataJSON()
	if err != nil {
		return err
	}
	return s.pages.Upsert(ctx, &storage.PageRecord{
		Vault:        file.Vault,
		Path:         file.Path,
		VirtualPath:  file.VirtualPath,
		Metadata:     metadata,
		LastModified: file.LastModified.UTC().Format(time.RFC3339Nano),
		Created:      file.Created.UTC().Format(time.RFC3339Nano),
	})
}

// ReportKind names what a report counted.
type ReportKind string

const (
	KindMarkdown ReportKind = "markdown"
	KindImage    ReportKind = "image"
)

// Failure is a single file that could not be scanned.
type Failure struct {
	Path string
	Err  error
}

// Report summarizes a scan: per-vault counts and per-file failures.
type Report struct {
	Kind     ReportKind
	Counts   map[string]int
	Failures []Failure
}

func newReport(kind ReportKind) *Report {
	return &Report{Kind: kind, Counts: make(map[string]int)}
}

func (r *Report) addScanned(vault string) {
	r.Counts[vault]++
}

func (r *Report) addFailure(path string, err error) {
	r.Failures = append(r.Failures, Failure{Path: path, Err: err})
}

// Total returns the number of files scanned successfully.
func (r *Report) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// String renders the textual scan summary.
func (r *Report) String() string {
	var b strings.Builder

	noun := "markdown files"
	if r.Kind == KindImage {
		noun = "images"
	}

	failures := append([]Failure(nil), r.Failures...)
	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })

	if len(failures) > 0 {
		fmt.Fprintf(&b, "The following errors occurred during %s scanning:\n", r.Kind)
		for _, f := range failures {
			fmt.Fprintf(&b, "File %q: %v\n", f.Path, f.Err)
		}
	} else {
		fmt.Fprintf(&b, "No errors during %s scanning.\n", r.Kind)
	}

	title := strings.ToUpper(string(r.Kind[:1])) + string(r.Kind[1:])
	fmt.Fprintf(&b, "\n%s scanning summary:\n", title)

	vaults := make([]string, 0, len(r.Counts))
	for v := range r.Counts {
		vaults = append(vaults, v)
	}
	sort.Strings(vaults)
	for _, v := range vaults {
		fmt.Fprintf(&b, "Vault %s: %d %s scanned.\n", v, r.Counts[v], noun)
	}

	return b.String()
}

package vault

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreFiles are read in every directory; their patterns apply below that directory.
var ignoreFiles = []string{".gitignore", ".ignore", ".vaultignore"}

// loadIgnorePatterns reads the ignore files of dir. domain is dir relative to the
// walk root, split into components; patterns only apply below it.
func loadIgnorePatterns(dir string, domain []string) []gitignore.Pattern {
	var patterns []gitignore.Pattern
	for _, name := range ignoreFiles {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), " \t\r")
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, domain))
		}
		_ = f.Close()
	}
	return patterns
}

// splitRel returns path relative to root as slash-free components.
func splitRel(root, path string) []string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// walkFiles traverses root and calls fn for every regular file that passes the
// ignore rules and whose extension is in exts. Hidden files and directories are skipped.
// Errors below root are skipped; an unreadable root is returned.
func walkFiles(ctx context.Context, root string, exts map[string]bool, fn func(path string) error) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absRoot); err != nil {
		return err
	}

	patternsByDir := map[string][]gitignore.Pattern{}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil // skip unreadable entries, keep walking
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		parent := patternsByDir[filepath.Dir(path)]
		parts := splitRel(absRoot, path)

		if d.IsDir() {
			if path != absRoot {
				if strings.HasPrefix(d.Name(), ".") || gitignore.NewMatcher(parent).Match(parts, true) {
					return filepath.SkipDir
				}
			}
			// Deeper ignore files come last, so they take precedence
			own := loadIgnorePatterns(path, parts)
			patterns := make([]gitignore.Pattern, 0, len(parent)+len(own))
			patterns = append(patterns, parent...)
			patterns = append(patterns, own...)
			patternsByDir[path] = patterns
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if !exts[ext] {
			return nil
		}
		if gitignore.NewMatcher(parent).Match(parts, false) {
			return nil
		}
		return fn(path)
	})
}

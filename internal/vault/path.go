package vault

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrIndicatorNotFound is returned when a physical path does not contain the indicator segment.
var ErrIndicatorNotFound = errors.New("indicator not found in path")

// ExtractVirtualPath returns the components of physical that follow the first
// component equal to indicator, joined with forward slashes.
// A run of repeated indicator components is consumed as a whole, so the result
// never starts with the indicator.
func ExtractVirtualPath(physical, indicator string) (string, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(physical)), "/")
	for i, part := range parts {
		if part == indicator && indicator != "" {
			rest := parts[i+1:]
			for len(rest) > 0 && rest[0] == indicator {
				rest = rest[1:]
			}
			if len(rest) == 0 {
				break
			}
			return strings.Join(rest, "/"), nil
		}
	}
	return "", fmt.Errorf("%w: indicator %q, path %s", ErrIndicatorNotFound, indicator, physical)
}

// ApplyFolder prefixes virtualPath with the frontmatter folder, if any.
func ApplyFolder(virtualPath string, frontmatter map[string]any) string {
	folder, ok := frontmatter["folder"].(string)
	if !ok {
		return virtualPath
	}
	folder = strings.TrimRight(folder, "/")
	if folder == "" {
		return virtualPath
	}
	return folder + "/" + virtualPath
}

// ParseFrontmatter extracts the leading YAML block of a document.
// The block starts with a first line of exactly "---" and runs to the next "---" line
// (or the end of the document). ok is false when the document has no frontmatter.
func ParseFrontmatter(r io.Reader) (fm map[string]any, ok bool, err error) {
	reader := bufio.NewReader(r)
	first, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, false, err
	}
	if strings.TrimSpace(first) != "---" {
		return nil, false, nil
	}

	var block []string
	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) == "---" {
			break
		}
		if line != "" {
			block = append(block, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(block, "\n")), &raw); err != nil {
		return nil, false, fmt.Errorf("invalid frontmatter: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return normalize(raw).(map[string]any), true, nil
}

// parseFrontmatterFile opens path and parses its frontmatter.
// Unreadable or malformed frontmatter is treated as absent.
func parseFrontmatterFile(path string) map[string]any {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() {
		_ = f.Close()
	}()

	fm, ok, err := ParseFrontmatter(f)
	if err != nil || !ok {
		return nil
	}
	return fm
}

// normalize converts YAML maps with non-string keys into JSON-encodable maps.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

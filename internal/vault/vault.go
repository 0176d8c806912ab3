package vault

import (
	"path/filepath"
	"sort"
	"strings"

	"vaultindex/internal/config"
)

// Vault is a named set of root directories to scan.
type Vault struct {
	Name  string
	Paths []string
}

// ResolveVaults selects the vaults to scan.
// Vaults flagged default win; when none is flagged, every configured vault is used.
// The result is sorted by name so scans are reproducible.
func ResolveVaults(cfg *config.Config) []Vault {
	var defaults, all []Vault
	for name, vc := range cfg.Vaults {
		if len(vc.Paths) == 0 {
			continue
		}
		v := Vault{Name: name, Paths: append([]string(nil), vc.Paths...)}
		all = append(all, v)
		if vc.Default {
			defaults = append(defaults, v)
		}
	}

	selected := defaults
	if len(selected) == 0 {
		selected = all
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Name < selected[j].Name })
	return selected
}

// Containing returns the vault with a root directory that holds path.
// Roots and path are compared as absolute, cleaned paths.
func Containing(vaults []Vault, path string) (Vault, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Vault{}, false
	}
	for _, v := range vaults {
		for _, root := range v.Paths {
			absRoot, err := filepath.Abs(root)
			if err != nil {
				continue
			}
			if strings.HasPrefix(abs, absRoot+string(filepath.Separator)) {
				return v, true
			}
		}
	}
	return Vault{}, false
}

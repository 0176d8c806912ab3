package vault

import (
	"testing"

	"vaultindex/internal/config"
)

func TestResolveVaults(t *testing.T) {
	tests := []struct {
		name   string
		vaults map[string]config.VaultConfig
		want   []string
	}{
		{
			name: "no default uses all",
			vaults: map[string]config.VaultConfig{
				"work":     {Paths: []string{"/w"}},
				"personal": {Paths: []string{"/p"}},
			},
			want: []string{"personal", "work"},
		},
		{
			name: "defaults only",
			vaults: map[string]config.VaultConfig{
				"work":     {Paths: []string{"/w"}, Default: true},
				"personal": {Paths: []string{"/p"}},
			},
			want: []string{"work"},
		},
		{
			name: "vaults without paths are skipped",
			vaults: map[string]config.VaultConfig{
				"empty": {},
				"main":  {Paths: []string{"/m"}},
			},
			want: []string{"main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveVaults(&config.Config{Vaults: tt.vaults})
			if len(got) != len(tt.want) {
				t.Fatalf("ResolveVaults() = %+v, want %v", got, tt.want)
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("ResolveVaults()[%d] = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

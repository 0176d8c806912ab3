package fulltext

import "testing"

func TestSnippet(t *testing.T) {
	long := "w0 w1 w2 w3 w4 w5 w6 w7 w8 w9 w10 w11 w12 w13 w14 target w16 w17 w18 w19 w20 w21 w22 w23 w24 w25 w26 w27 w28 w29"

	tests := []struct {
		name   string
		body   string
		terms  []string
		maxLen int
		want   string
	}{
		{
			name:   "best paragraph",
			body:   "# Heading\n\nFirst para here.\n\nSecond para about cats.",
			terms:  []string{"cats"},
			maxLen: 200,
			want:   "Second para about cats.",
		},
		{
			name:   "case insensitive terms",
			body:   "nothing\n\nAll about CATS",
			terms:  []string{"Cats"},
			maxLen: 200,
			want:   "All about CATS",
		},
		{
			name:   "no match uses first paragraph",
			body:   "First para here.\n\nSecond para.",
			terms:  []string{"dogs"},
			maxLen: 200,
			want:   "First para here.",
		},
		{
			name:   "heading lines removed",
			body:   "## Only heading\nbody under heading",
			terms:  []string{"body"},
			maxLen: 200,
			want:   "body under heading",
		},
		{
			name:   "window with context",
			body:   long,
			terms:  []string{"target"},
			maxLen: 200,
			want:   "... w4 w5 w6 w7 w8 w9 w10 w11 w12 w13 w14 target w16 w17 ...",
		},
		{
			name:   "window at start",
			body:   "target " + long[3:],
			terms:  []string{"target"},
			maxLen: 200,
			want:   "target w1 w2 w3 w4 w5 w6 w7 w8 w9 w10 w11 ...",
		},
		{
			name:   "truncated",
			body:   "abcdefghijklmno",
			terms:  []string{"zzz"},
			maxLen: 10,
			want:   "abcdefg...",
		},
		{
			name:   "rune safe truncation",
			body:   "ééééééééééééé",
			terms:  nil,
			maxLen: 5,
			want:   "éé...",
		},
		{
			name:   "headings only",
			body:   "# One\n\n## Two",
			terms:  []string{"one"},
			maxLen: 200,
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.body, tt.terms, tt.maxLen); got != tt.want {
				t.Errorf("Snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		want     string
	}{
		{name: "first h1", content: "intro\n\n# My *Title*\n\n# Second", filename: "x.md", want: "My Title"},
		{name: "h2 ignored", content: "## Sub\n\ntext", filename: "notes/plan.md", want: "plan"},
		{name: "no headings", content: "just text", filename: "daily.markdown", want: "daily"},
		{name: "frontmatter stripped first", content: string(StripFrontmatter([]byte("---\ntitle: x\n---\n# Real\n"))), filename: "a.md", want: "Real"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title([]byte(tt.content), tt.filename); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripFrontmatter(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"---\na: 1\n---\nbody", "body"},
		{"no frontmatter", "no frontmatter"},
		{"---\nunclosed", "---\nunclosed"},
	}
	for _, tt := range tests {
		if got := string(StripFrontmatter([]byte(tt.in))); got != tt.want {
			t.Errorf("StripFrontmatter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package vectorstore

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"vaultindex/internal/config"
)

func TestIndexParams(t *testing.T) {
	p := DefaultIndexParams()

	partitions := []struct {
		rows int
		want int
	}{
		{0, 10},
		{1, 10},
		{100, 10},
		{144, 12},
		{10000, 100},
		{250000, 500},
		{5000000, 1000},
	}
	for _, tt := range partitions {
		if got := p.Partitions(tt.rows); got != tt.want {
			t.Errorf("Partitions(%d) = %d, want %d", tt.rows, got, tt.want)
		}
	}

	scanned := []struct {
		partitions int
		want       int
	}{
		{10, 10},
		{100, 10},
		{250, 25},
		{1000, 100},
		{5000, 100},
	}
	for _, tt := range scanned {
		if got := p.Probes(tt.partitions); got != tt.want {
			t.Errorf("Probes(%d) = %d, want %d", tt.partitions, got, tt.want)
		}
	}
}

func TestIndexParamsFromConfig(t *testing.T) {
	p := IndexParamsFromConfig(config.VectorConfig{ProbeRatio: 0.5, MaxProbes: 200})
	if p.ProbeRatio != 0.5 || p.MaxProbes != 200 || p.MinPartitions != 10 {
		t.Errorf("IndexParamsFromConfig() = %+v", p)
	}
	if got := p.Probes(300); got != 150 {
		t.Errorf("Probes(300) with ratio 0.5 = %d, want 150", got)
	}
}

func TestMetric_ToSimilarity(t *testing.T) {
	tests := []struct {
		metric Metric
		score  float32
		want   float32
	}{
		{CosineDistance, 0, 1},
		{CosineDistance, 0.25, 0.75},
		{CosineDistance, 2, -1},
		{L2Distance, 0, 1},
		{L2Distance, 1, 0.5},
		{CosineSimilarity, 0.8, 0.8},
		{DotProduct, 3, 3},
	}
	for _, tt := range tests {
		if got := tt.metric.ToSimilarity(tt.score); math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("%v.ToSimilarity(%v) = %v, want %v", tt.metric, tt.score, got, tt.want)
		}
	}
}

func TestMetric_Distance(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := CosineDistance.distance(a, b); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("cosine distance = %v, want 1", got)
	}
	if got := L2Distance.distance(a, b); math.Abs(float64(got)-math.Sqrt2) > 1e-6 {
		t.Errorf("l2 distance = %v, want sqrt(2)", got)
	}
	if got := CosineSimilarity.distance(a, a); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("cosine similarity = %v, want 1", got)
	}
	if got := CosineDistance.distance([]float32{0, 0}, a); got != 1 {
		t.Errorf("cosine distance to zero vector = %v, want 1", got)
	}
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{
		"":                  CosineDistance,
		"cosine":            CosineDistance,
		"L2":                L2Distance,
		"dot":               DotProduct,
		"cosine_similarity": CosineSimilarity,
	} {
		got, err := ParseMetric(in)
		if err != nil || got != want {
			t.Errorf("ParseMetric(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMetric("hamming"); err == nil {
		t.Error("ParseMetric(hamming) error = nil")
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		expr    string
		want    []Condition
		wantErr bool
	}{
		{expr: "", want: nil},
		{
			expr: "metadata_json LIKE '%tag%'",
			want: []Condition{{Field: "metadata_json", Value: "tag", Contains: true}},
		},
		{
			expr: "virtual_path = 'it''s.md' and metadata_json like '%x%'",
			want: []Condition{
				{Field: "virtual_path", Value: "it's.md"},
				{Field: "metadata_json", Value: "x", Contains: true},
			},
		},
		{expr: "id IN ('a')", wantErr: true},
		{expr: "a = 'b' OR c = 'd'", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := ParseFilter(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Errorf("error = %v, want ErrInvalidFilter", err)
				}
				return
			}
			if !reflect.DeepEqual(f.Conditions, tt.want) {
				t.Errorf("ParseFilter() = %+v, want %+v", f.Conditions, tt.want)
			}
		})
	}
}

func TestFilter_Match(t *testing.T) {
	e := DocumentEmbedding{ID: "x1", Metadata: map[string]string{MetaVirtualPath: "projects/a.md"}}
	f, _ := ParseFilter("metadata_json LIKE '%projects/%' AND id = 'x1'")
	if !f.Match(e) {
		t.Error("Match() = false, want true")
	}
	f, _ = ParseFilter("virtual_path = 'b.md'")
	if f.Match(e) {
		t.Error("Match() = true, want false")
	}
	f, _ = ParseFilter("metadata_json LIKE '%PROJECTS/A%'")
	if !f.Match(e) {
		t.Error("Match() with upper-case LIKE text = false, want true")
	}
	f, _ = ParseFilter("metadata_json LIKE '%projects_a%'")
	if f.Match(e) {
		t.Error("Match() treated _ as a wildcard")
	}
}

func TestFilter_Where(t *testing.T) {
	f, err := ParseFilter("metadata_json LIKE '%tag%' AND id = 'x1' AND virtual_path = 'a.md'")
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}

	tests := []struct {
		name     string
		dialect  sqlDialect
		prefix   string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "sqlite",
			dialect:  sqliteDialect,
			prefix:   "r.",
			wantSQL:  "WHERE instr(lower(r.metadata_json), lower(?)) > 0 AND r.id = ? AND json_extract(r.metadata_json, ?) = ?",
			wantArgs: []any{"tag", "x1", "$.virtual_path", "a.md"},
		},
		{
			name:     "postgres",
			dialect:  postgresDialect,
			wantSQL:  "WHERE strpos(lower(metadata_json), lower($3)) > 0 AND id = $4 AND (metadata_json::jsonb ->> $5) = $6",
			wantArgs: []any{"tag", "x1", "virtual_path", "a.md"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := f.where(tt.dialect, tt.prefix, 3)
			if sql != tt.wantSQL {
				t.Errorf("where() sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("where() args = %v, want %v", args, tt.wantArgs)
			}
		})
	}

	if sql, args := (Filter{}).where(sqliteDialect, "r.", 3); sql != "" || args != nil {
		t.Errorf("where() on empty filter = %q, %v", sql, args)
	}
}

func TestEmbeddingID(t *testing.T) {
	id := EmbeddingID("notes/a.md", "/v/notes/a.md")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("EmbeddingID() = %q is not a UUID: %v", id, err)
	}
	if id != EmbeddingID("notes/a.md", "/v/notes/a.md") {
		t.Error("EmbeddingID() is not stable")
	}
	if id == EmbeddingID("/v/notes/a.md", "notes/a.md") {
		t.Error("EmbeddingID() ignores argument order")
	}
	// Shifting a separator between the parts must change the id
	if EmbeddingID("a_", "b") == EmbeddingID("a", "_b") {
		t.Error("EmbeddingID() collides on separator shift")
	}
}

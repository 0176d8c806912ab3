package vectorstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"vaultindex/internal/contextutil"
)

const kmeansIterations = 10

// MemoryStore is an in-process EmbeddingStore with an IVF (inverted file) index.
// Centroids are trained with k-means on the first insert into a table; later rows
// are assigned to their nearest centroid. Queries scan the Probes nearest partitions.
type MemoryStore struct {
	mu     sync.RWMutex
	dim    int
	metric Metric
	params IndexParams
	tables map[string]*memoryTable
}

type memoryTable struct {
	rows       map[string]DocumentEmbedding
	centroids  [][]float32
	partitions []map[string]struct{}
	assignment map[string]int
}

func (t *memoryTable) indexed() bool {
	return len(t.centroids) > 0
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(dim int, metric Metric, params IndexParams) *MemoryStore {
	return &MemoryStore{
		dim:    dim,
		metric: metric,
		params: params,
		tables: make(map[string]*memoryTable),
	}
}

func (s *MemoryStore) CreateTable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return nil
	}
	s.tables[name] = &memoryTable{
		rows:       make(map[string]DocumentEmbedding),
		assignment: make(map[string]int),
	}
	return nil
}

func (s *MemoryStore) TableExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[name]
	return ok, nil
}

func (s *MemoryStore) DropTable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	delete(s.tables, name)
	return nil
}

func (s *MemoryStore) AddEmbeddings(ctx context.Context, name string, embeddings []DocumentEmbedding) error {
	if err := checkBatch(s.dim, embeddings); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	embeddings = lastByID(embeddings)
	for _, e := range embeddings {
		t.unassign(e.ID)
		t.rows[e.ID] = copyEmbedding(e)
	}

	if !t.indexed() {
		s.train(t)
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "built IVF index",
			"table", name, "rows", len(t.rows), "partitions", len(t.centroids))
		return nil
	}
	for _, e := range embeddings {
		t.assign(e.ID, s.nearestCentroid(t, e.Vector))
	}
	return nil
}

func (s *MemoryStore) DeleteEmbeddings(ctx context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	for _, id := range ids {
		t.unassign(id)
		delete(t.rows, id)
	}
	return nil
}

func (s *MemoryStore) SimilaritySearch(ctx context.Context, name string, query []float32, limit int, filter string) ([]ScoredEmbedding, error) {
	if err := checkQuery(s.dim, query); err != nil {
		return nil, err
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if !t.indexed() {
		return nil, nil
	}

	var hits []ScoredEmbedding
	for _, p := range s.nearestPartitions(t, query) {
		for id := range t.partitions[p] {
			row, ok := t.rows[id]
			if !ok || !f.Match(row) {
				continue
			}
			hits = append(hits, ScoredEmbedding{
				Embedding: copyEmbedding(row),
				Score:     s.metric.distance(query, row.Vector),
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return s.metric.closer(hits[i].Score, hits[j].Score)
		}
		return hits[i].Embedding.ID < hits[j].Embedding.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Optimize retrains the centroids for the current row count.
func (s *MemoryStore) Optimize(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if len(t.rows) == 0 {
		return nil
	}
	s.train(t)
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "rebuilt IVF index",
		"table", name, "rows", len(t.rows), "partitions", len(t.centroids))
	return nil
}

func (s *MemoryStore) Metric() Metric { return s.metric }

func (s *MemoryStore) Dimension() int { return s.dim }

func (s *MemoryStore) Close() error { return nil }

// train runs k-means over every row and rebuilds the partitions.
func (s *MemoryStore) train(t *memoryTable) {
	ids := make([]string, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	k := min(s.params.Partitions(len(ids)), len(ids))
	rng := rand.New(rand.NewPCG(42, 1024))

	t.centroids = make([][]float32, k)
	for i, idx := range rng.Perm(len(ids))[:k] {
		t.centroids[i] = append([]float32(nil), t.rows[ids[idx]].Vector...)
	}

	assignment := make([]int, len(ids))
	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, id := range ids {
			c := s.nearestCentroid(t, t.rows[id].Vector)
			if iter == 0 || c != assignment[i] {
				changed = true
			}
			assignment[i] = c
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, s.dim)
		}
		for i, id := range ids {
			c := assignment[i]
			counts[c]++
			for d, v := range t.rows[id].Vector {
				sums[c][d] += float64(v)
			}
		}
		for c := range t.centroids {
			if counts[c] == 0 {
				continue // keep empty centroids where they are
			}
			for d := range t.centroids[c] {
				t.centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}

	t.partitions = make([]map[string]struct{}, k)
	for i := range t.partitions {
		t.partitions[i] = make(map[string]struct{})
	}
	t.assignment = make(map[string]int, len(ids))
	for _, id := range ids {
		t.assign(id, s.nearestCentroid(t, t.rows[id].Vector))
	}
}

func (s *MemoryStore) nearestCentroid(t *memoryTable, v []float32) int {
	best := 0
	var bestScore float32
	for i, c := range t.centroids {
		score := s.metric.distance(v, c)
		if i == 0 || s.metric.closer(score, bestScore) {
			best, bestScore = i, score
		}
	}
	return best
}

// nearestPartitions returns the indexes of the partitions nearest to query.
func (s *MemoryStore) nearestPartitions(t *memoryTable, query []float32) []int {
	order := make([]int, len(t.centroids))
	scores := make([]float32, len(t.centroids))
	for i, c := range t.centroids {
		order[i] = i
		scores[i] = s.metric.distance(query, c)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.metric.closer(scores[order[a]], scores[order[b]])
	})
	n := min(s.params.Probes(len(t.centroids)), len(order))
	return order[:n]
}

func (t *memoryTable) assign(id string, partition int) {
	t.assignment[id] = partition
	t.partitions[partition][id] = struct{}{}
}

func (t *memoryTable) unassign(id string) {
	p, ok := t.assignment[id]
	if !ok {
		return
	}
	delete(t.partitions[p], id)
	delete(t.assignment, id)
}

// lastByID drops earlier entries that share an id with a later one,
// keeping the order in which ids first appear.
func lastByID(embeddings []DocumentEmbedding) []DocumentEmbedding {
	pos := make(map[string]int, len(embeddings))
	out := make([]DocumentEmbedding, 0, len(embeddings))
	for _, e := range embeddings {
		if i, ok := pos[e.ID]; ok {
			out[i] = e
			continue
		}
		pos[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}

func copyEmbedding(e DocumentEmbedding) DocumentEmbedding {
	out := DocumentEmbedding{
		ID:       e.ID,
		Vector:   append([]float32(nil), e.Vector...),
		Metadata: make(map[string]string, len(e.Metadata)),
	}
	for k, v := range e.Metadata {
		out.Metadata[k] = v
	}
	return out
}

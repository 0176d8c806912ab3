package vectorstore

import (
	"fmt"
	"math"
	"strings"
)

// Metric describes what a backend's raw score means.
type Metric int

const (
	// CosineDistance is 1 - cos(a, b); lower is closer.
	CosineDistance Metric = iota
	// L2Distance is the Euclidean distance; lower is closer.
	L2Distance
	// CosineSimilarity is cos(a, b); higher is closer.
	CosineSimilarity
	// DotProduct is a·b; higher is closer.
	DotProduct
)

func (m Metric) String() string {
	switch m {
	case CosineDistance:
		return "cosine_distance"
	case L2Distance:
		return "l2"
	case CosineSimilarity:
		return "cosine_similarity"
	case DotProduct:
		return "dot"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// ParseMetric maps a config name to a Metric. Empty means cosine distance.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine", "cosine_distance":
		return CosineDistance, nil
	case "l2", "euclidean":
		return L2Distance, nil
	case "cosine_similarity":
		return CosineSimilarity, nil
	case "dot", "dot_product":
		return DotProduct, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// IsDistance reports whether lower scores are closer.
func (m Metric) IsDistance() bool {
	return m == CosineDistance || m == L2Distance
}

// ToSimilarity maps a raw score to a similarity where higher is closer.
func (m Metric) ToSimilarity(score float32) float32 {
	switch m {
	case CosineDistance:
		return 1 - score
	case L2Distance:
		return 1 / (1 + score)
	default:
		return score
	}
}

// distance computes the raw score between two vectors of equal length.
func (m Metric) distance(a, b []float32) float32 {
	switch m {
	case L2Distance:
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return float32(math.Sqrt(sum))
	case DotProduct:
		return float32(dot(a, b))
	case CosineSimilarity:
		return float32(cosine(a, b))
	default:
		return float32(1 - cosine(a, b))
	}
}

// closer reports whether raw score a ranks ahead of b.
func (m Metric) closer(a, b float32) bool {
	if m.IsDistance() {
		return a < b
	}
	return a > b
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func cosine(a, b []float32) float64 {
	na := math.Sqrt(dot(a, a))
	nb := math.Sqrt(dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

package vectorstore

import (
	"math"

	"vaultindex/internal/config"
)

// IndexParams sizes a partitioned ANN index from the number of stored rows.
type IndexParams struct {
	MinPartitions int
	MaxPartitions int
	MinProbes     int
	MaxProbes     int
	ProbeRatio    float64
}

// DefaultIndexParams returns the stock sizing bounds.
func DefaultIndexParams() IndexParams {
	return IndexParams{
		MinPartitions: 10,
		MaxPartitions: 1000,
		MinProbes:     10,
		MaxProbes:     100,
		ProbeRatio:    0.10,
	}
}

// IndexParamsFromConfig builds params from config, keeping defaults for unset fields.
func IndexParamsFromConfig(cfg config.VectorConfig) IndexParams {
	p := DefaultIndexParams()
	if cfg.MinPartitions > 0 {
		p.MinPartitions = cfg.MinPartitions
	}
	if cfg.MaxPartitions > 0 {
		p.MaxPartitions = cfg.MaxPartitions
	}
	if cfg.MinProbes > 0 {
		p.MinProbes = cfg.MinProbes
	}
	if cfg.MaxProbes > 0 {
		p.MaxProbes = cfg.MaxProbes
	}
	if cfg.ProbeRatio > 0 {
		p.ProbeRatio = cfg.ProbeRatio
	}
	return p
}

// Partitions returns clamp(round(sqrt(rows)), MinPartitions, MaxPartitions).
func (p IndexParams) Partitions(rows int) int {
	n := int(math.Round(math.Sqrt(float64(max(rows, 0)))))
	return clamp(n, p.MinPartitions, p.MaxPartitions)
}

// Probes returns clamp(round(ProbeRatio*partitions), MinProbes, MaxProbes).
func (p IndexParams) Probes(partitions int) int {
	n := int(math.Round(p.ProbeRatio * float64(partitions)))
	return clamp(n, p.MinProbes, p.MaxProbes)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package telemetry

import (
	"log/slog"
	"math"
	"sort"
)

// StepStats holds aggregated statistics for one completed timestep.
type StepStats struct {
	Step    int     `csv:"step"`
	SimTime float64 `csv:"sim_time"`

	// Population at step end
	Particles int `csv:"particles"`
	Alive     int `csv:"alive"`

	// Event counts during the step
	Facets     uint64 `csv:"nfacets"`
	Collisions uint64 `csv:"ncollisions"`
	Processed  uint64 `csv:"nprocessed"`

	// Tally
	TallySum float64 `csv:"tally_sum"`

	// Population energy and weight distribution (alive particles)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`
	WeightMean float64 `csv:"weight_mean"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeEnergyStats calculates mean and percentiles from energy values.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	if math.IsNaN(m) {
		return 0
	}
	return m
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("particles", s.Particles),
		slog.Int("alive", s.Alive),
		slog.Uint64("nfacets", s.Facets),
		slog.Uint64("ncollisions", s.Collisions),
		slog.Uint64("nprocessed", s.Processed),
		slog.Float64("tally_sum", s.TallySum),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("weight_mean", s.WeightMean),
	)
}

// LogStats logs the step stats using slog.
func (s StepStats) LogStats() {
	slog.Info("step",
		"step", s.Step,
		"sim_time", s.SimTime,
		"alive", s.Alive,
		"nfacets", s.Facets,
		"ncollisions", s.Collisions,
		"nprocessed", s.Processed,
		"tally_sum", s.TallySum,
		"energy_mean", s.EnergyMean,
		"weight_mean", s.WeightMean,
	)
}

package sampler

import "math"

// Correlation constants observed on production SQL Server workloads.
const (
	// CPU time runs at 60-95% of elapsed duration.
	cpuRatioLow  = 0.6
	cpuRatioHigh = 0.95

	// Logical page reads scale at roughly 100 pages per millisecond of
	// duration, with 30% noise.
	readsPerMs       = 100.0
	readsNoiseStddev = 0.3

	// Physical reads jitter around the cache miss fraction.
	physicalJitterLow  = 0.5
	physicalJitterHigh = 1.5
)

// Correlator derives resource metrics that move together with query
// duration, so a slow sample is slow across the board.
type Correlator struct {
	sampler *Sampler
}

// NewCorrelator creates a Correlator drawing from the same random stream
// as the sampler.
func NewCorrelator(s *Sampler) *Correlator {
	return &Correlator{sampler: s}
}

// CPUFromDurations derives per-sample CPU time (microseconds) from
// duration samples (microseconds).
func (c *Correlator) CPUFromDurations(durations []float64) []float64 {
	out := make([]float64, len(durations))
	for i, d := range durations {
		out[i] = d * c.sampler.Uniform(cpuRatioLow, cpuRatioHigh)
	}

	return out
}

// LogicalReadsFromDurations derives per-sample logical page reads from
// duration samples (microseconds). Results are integral and at least 1.
func (c *Correlator) LogicalReadsFromDurations(durations []float64) []float64 {
	out := make([]float64, len(durations))

	for i, d := range durations {
		reads := d / 1000.0 * readsPerMs * c.sampler.Normal(1.0, readsNoiseStddev)

		out[i] = math.Max(1, math.Trunc(reads))
	}

	return out
}

// PhysicalReadsFromLogical derives physical reads as the cache miss share
// of logical reads. Results are integral and non-negative.
func (c *Correlator) PhysicalReadsFromLogical(logical []float64, cacheHitRatio float64) []float64 {
	missRatio := 1 - cacheHitRatio
	out := make([]float64, len(logical))

	for i, reads := range logical {
		physical := reads * missRatio * c.sampler.Uniform(physicalJitterLow, physicalJitterHigh)

		out[i] = math.Max(0, math.Trunc(physical))
	}

	return out
}

package sampler_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab271/dmvoor/pkg/sampler"
)

func newSampler(seed int64) *sampler.Sampler {
	return sampler.New(rand.New(rand.NewSource(seed)))
}

func TestSamplerDeterminism(t *testing.T) {
	a := newSampler(42)
	b := newSampler(42)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uniform(0, 1), b.Uniform(0, 1))
		assert.Equal(t, a.Poisson(5), b.Poisson(5))
		assert.Equal(t, a.IntBetween(1, 10), b.IntBetween(1, 10))
	}

	assert.Equal(t, a.LogNormal(50, 20, 16), b.LogNormal(50, 20, 16))
	assert.Equal(t, a.Bytes(16), b.Bytes(16))
	assert.Equal(t, a.PickIndices(9, 4), b.PickIndices(9, 4))
}

func TestLogNormal(t *testing.T) {
	t.Run("degenerate spread collapses to the mean", func(t *testing.T) {
		s := newSampler(1)

		values := s.LogNormal(50, 0, 5)
		require.Len(t, values, 5)

		for _, v := range values {
			assert.Equal(t, 50.0, v)
		}
	})

	t.Run("zero mean collapses to zero", func(t *testing.T) {
		s := newSampler(1)

		for _, v := range s.LogNormal(0, 10, 5) {
			assert.Zero(t, v)
		}
	})

	t.Run("samples are positive and track the mean", func(t *testing.T) {
		s := newSampler(42)

		values := s.LogNormal(50, 20, 10000)

		total := 0.0
		for _, v := range values {
			require.Greater(t, v, 0.0)
			total += v
		}

		avg := total / float64(len(values))
		assert.InDelta(t, 50.0, avg, 5.0)
	})
}

func TestPoisson(t *testing.T) {
	t.Run("non-positive rate yields zero", func(t *testing.T) {
		s := newSampler(1)
		assert.Zero(t, s.Poisson(0))
		assert.Zero(t, s.Poisson(-3))
	})

	t.Run("small rate tracks the mean", func(t *testing.T) {
		s := newSampler(42)

		total := 0
		for i := 0; i < 2000; i++ {
			total += s.Poisson(5)
		}

		assert.InDelta(t, 5.0, float64(total)/2000, 0.5)
	})

	t.Run("large rate uses the normal approximation", func(t *testing.T) {
		s := newSampler(42)

		total := 0
		for i := 0; i < 500; i++ {
			v := s.Poisson(600)
			require.GreaterOrEqual(t, v, 0)
			total += v
		}

		assert.InDelta(t, 600.0, float64(total)/500, 20.0)
	})
}

func TestUniform(t *testing.T) {
	s := newSampler(7)

	for i := 0; i < 1000; i++ {
		v := s.Uniform(0.3, 1.0)
		require.GreaterOrEqual(t, v, 0.3)
		require.Less(t, v, 1.0)
	}
}

func TestIntBetween(t *testing.T) {
	s := newSampler(7)

	seen := map[int]bool{}

	for i := 0; i < 1000; i++ {
		v := s.IntBetween(1, 4)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 4)
		seen[v] = true
	}

	// Both bounds are inclusive and reachable.
	assert.True(t, seen[1])
	assert.True(t, seen[4])
}

func TestWeightedIndex(t *testing.T) {
	s := newSampler(42)

	counts := make([]int, 3)
	for i := 0; i < 10000; i++ {
		counts[s.WeightedIndex([]float64{0.7, 0.3, 0.0})]++
	}

	assert.Zero(t, counts[2], "zero weight must never be chosen")
	assert.Greater(t, counts[0], counts[1])
	assert.InDelta(t, 7000, counts[0], 500)
}

func TestPickIndices(t *testing.T) {
	s := newSampler(3)

	picked := s.PickIndices(9, 4)
	require.Len(t, picked, 4)

	seen := map[int]bool{}
	for _, idx := range picked {
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 9)
		require.False(t, seen[idx], "indices must be distinct")
		seen[idx] = true
	}

	// Requesting more than available clamps to the population size.
	assert.Len(t, s.PickIndices(3, 10), 3)
}

func TestSummarize(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, sampler.Summary{}, sampler.Summarize(nil))
	})

	t.Run("known values", func(t *testing.T) {
		sum := sampler.Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})

		assert.Equal(t, 5.0, sum.Avg)
		assert.Equal(t, 2.0, sum.Min)
		assert.Equal(t, 9.0, sum.Max)
		assert.Equal(t, 9.0, sum.Last)
		assert.Equal(t, 40.0, sum.Total)
		// Population standard deviation, not the sample estimate.
		assert.InDelta(t, 2.0, sum.Stdev, 1e-9)
	})

	t.Run("single value", func(t *testing.T) {
		sum := sampler.Summarize([]float64{3.5})

		assert.Equal(t, 3.5, sum.Avg)
		assert.Equal(t, 3.5, sum.Last)
		assert.Zero(t, sum.Stdev)
	})
}

func TestCorrelatorCPUFromDurations(t *testing.T) {
	s := newSampler(42)
	c := sampler.NewCorrelator(s)

	durations := s.LogNormal(50000, 20000, 500)
	cpu := c.CPUFromDurations(durations)
	require.Len(t, cpu, len(durations))

	for i, v := range cpu {
		assert.GreaterOrEqual(t, v, durations[i]*0.6)
		assert.LessOrEqual(t, v, durations[i]*0.95)
	}
}

func TestCorrelatorLogicalReads(t *testing.T) {
	s := newSampler(42)
	c := sampler.NewCorrelator(s)

	durations := s.LogNormal(50000, 20000, 500)
	reads := c.LogicalReadsFromDurations(durations)
	require.Len(t, reads, len(durations))

	for _, v := range reads {
		assert.GreaterOrEqual(t, v, 1.0)
		assert.Equal(t, math.Trunc(v), v, "reads are whole pages")
	}
}

func TestCorrelatorPhysicalReads(t *testing.T) {
	s := newSampler(42)
	c := sampler.NewCorrelator(s)

	logical := []float64{1000, 5000, 100, 250000}

	t.Run("typical hit ratio", func(t *testing.T) {
		physical := c.PhysicalReadsFromLogical(logical, 0.95)
		require.Len(t, physical, len(logical))

		for i, v := range physical {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, logical[i], "misses are a small fraction of logical reads")
			assert.Equal(t, math.Trunc(v), v)
		}
	})

	t.Run("hit ratio above one floors at zero", func(t *testing.T) {
		// A low-pressure environment can push the derived hit ratio
		// past 1.0; the miss share must clamp instead of going
		// negative.
		for _, v := range c.PhysicalReadsFromLogical(logical, 1.35) {
			assert.Zero(t, v)
		}
	})
}

package sampler

import (
	"math"
	"math/rand"
)

// Sampler draws values from the statistical distributions the generator
// needs. All randomness flows through the single *rand.Rand passed in, so
// a run is reproducible from its seed.
type Sampler struct {
	rng *rand.Rand
}

// New creates a Sampler on top of an existing RNG. The RNG is shared, not
// copied: interleaved callers consume one deterministic stream.
func New(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// LogNormal draws n values whose arithmetic mean and standard deviation
// approximate the given parameters. Performance metrics are modeled
// log-normally: most samples cluster low with a long right tail. A zero
// mean or spread collapses to n copies of the mean.
func (s *Sampler) LogNormal(mean, stddev float64, n int) []float64 {
	out := make([]float64, n)

	if mean == 0 || stddev == 0 {
		for i := range out {
			out[i] = mean
		}

		return out
	}

	variance := stddev * stddev
	mu := math.Log(mean * mean / math.Sqrt(variance+mean*mean))
	sigma := math.Sqrt(math.Log(variance/(mean*mean) + 1))

	for i := range out {
		out[i] = math.Exp(mu + sigma*s.rng.NormFloat64())
	}

	return out
}

// Normal draws one normally distributed value.
func (s *Sampler) Normal(mean, stddev float64) float64 {
	return s.rng.NormFloat64()*stddev + mean
}

// ClampedNormal draws one normally distributed value with a floor.
func (s *Sampler) ClampedNormal(mean, stddev, min float64) float64 {
	v := s.Normal(mean, stddev)
	if v < min {
		return min
	}

	return v
}

// Poisson draws a count with the given rate. Knuth's method is exact for
// the rates in use; very large rates switch to the normal approximation
// before exp(-lambda) underflows.
func (s *Sampler) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}

	if lambda > 500 {
		v := math.Round(s.Normal(lambda, math.Sqrt(lambda)))
		if v < 0 {
			return 0
		}

		return int(v)
	}

	limit := math.Exp(-lambda)
	k := 0
	p := 1.0

	for {
		k++

		p *= s.rng.Float64()
		if p <= limit {
			return k - 1
		}
	}
}

// Uniform draws one value in [low, high).
func (s *Sampler) Uniform(low, high float64) float64 {
	return low + s.rng.Float64()*(high-low)
}

// IntBetween draws one integer in [low, high], bounds inclusive.
func (s *Sampler) IntBetween(low, high int) int {
	return low + s.rng.Intn(high-low+1)
}

// Chance reports true with probability p.
func (s *Sampler) Chance(p float64) bool {
	return s.rng.Float64() < p
}

// WeightedIndex picks an index with probability proportional to its
// weight.
func (s *Sampler) WeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	r := s.rng.Float64() * total

	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}

	return len(weights) - 1
}

// PickIndices selects k distinct indices from [0, n) in random order.
func (s *Sampler) PickIndices(n, k int) []int {
	if k > n {
		k = n
	}

	return s.rng.Perm(n)[:k]
}

// Bytes fills a fresh buffer of length n from the random stream.
func (s *Sampler) Bytes(n int) []byte {
	b := make([]byte, n)
	// Read on math/rand never fails.
	_, _ = s.rng.Read(b)

	return b
}

// Summary holds the aggregates reported per metric sample set.
type Summary struct {
	Avg   float64
	Min   float64
	Max   float64
	Last  float64
	Stdev float64
	Total float64
}

// Summarize computes avg, min, max, last value, population standard
// deviation, and sum of a sample set.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sum := 0.0
	min := values[0]
	max := values[0]

	for _, v := range values {
		sum += v

		if v < min {
			min = v
		}

		if v > max {
			max = v
		}
	}

	avg := sum / float64(len(values))

	ss := 0.0
	for _, v := range values {
		d := v - avg
		ss += d * d
	}

	return Summary{
		Avg:   avg,
		Min:   min,
		Max:   max,
		Last:  values[len(values)-1],
		Stdev: math.Sqrt(ss / float64(len(values))),
		Total: sum,
	}
}

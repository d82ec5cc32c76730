package analyze

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// safeFloat parses a numeric field, normalizing decimal commas to dots.
// Returns fallback when the field does not parse.
func safeFloat(s string, fallback float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return fallback
	}

	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	m := mean(values)

	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}

	return math.Sqrt(sum / float64(len(values)))
}

// percentile computes the p-th percentile with linear interpolation between
// the closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))

	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	frac := rank - float64(lower)

	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

func median(values []float64) float64 {
	return percentile(values, 50)
}

// pearson computes the correlation coefficient of two equal-length series.
// Returns NaN when either series has no variance.
func pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return math.NaN()
	}

	mx, my := mean(xs), mean(ys)

	var sxy, sxx, syy float64

	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}

	if sxx == 0 || syy == 0 {
		return math.NaN()
	}

	return sxy / math.Sqrt(sxx*syy)
}

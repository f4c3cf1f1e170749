// Package permutation implements randomization tests over in-memory vectors:
// paired sign-flip tests, k-sample relabeling tests, Benjamini-Hochberg FDR
// correction, and nonparametric combination (NPC) of correlated outcomes.
//
// Every function takes an explicit *rand.Rand so a fixed seed reproduces the
// null reference distributions bit-for-bit; there is no hidden generator
// state anywhere in the package.
package permutation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrInvalidInput reports structurally invalid test inputs.
var ErrInvalidInput = errors.New("invalid permutation test input")

// Alternative selects the tail(s) of a test.
type Alternative string

const (
	AltTwoSided Alternative = "two.sided"
	AltGreater  Alternative = "greater"
	AltLess     Alternative = "less"
)

// Distribution is an ordered sequence of null test-statistic draws, one per
// random relabeling.
type Distribution []float64

// Result holds one permutation test outcome.
type Result struct {
	Observed     float64      `json:"observed"`
	PValue       float64      `json:"p_value"`
	Alternative  Alternative  `json:"alternative"`
	Replicates   int          `json:"replicates"`
	Null         Distribution `json:"-"`
}

// PlugInPValue computes (#extreme + 1) / (B + 1), which is never exactly 0
// and equals 1/(B+1) when the observed statistic beats every null draw.
func PlugInPValue(observed float64, null Distribution, alt Alternative) float64 {
	extreme := 0
	for _, n := range null {
		if isExtreme(n, observed, alt) {
			extreme++
		}
	}
	return float64(extreme+1) / float64(len(null)+1)
}

func isExtreme(nullStat, observed float64, alt Alternative) bool {
	switch alt {
	case AltGreater:
		return nullStat >= observed
	case AltLess:
		return nullStat <= observed
	default:
		return math.Abs(nullStat) >= math.Abs(observed)
	}
}

// OneSample runs a paired sign-flip test on a vector of per-unit differences.
// The observed statistic is mean(x); each of the reps null draws flips the
// sign of every element independently with probability one half.
func OneSample(x []float64, reps int, rng *rand.Rand) (Result, error) {
	if len(x) == 0 {
		return Result{}, fmt.Errorf("%w: empty difference vector", ErrInvalidInput)
	}
	if reps < 1 {
		return Result{}, fmt.Errorf("%w: replicates %d must be positive", ErrInvalidInput, reps)
	}

	observed := mean(x)
	null := make(Distribution, reps)
	for b := 0; b < reps; b++ {
		sum := 0.0
		for _, v := range x {
			if rng.Intn(2) == 0 {
				sum += v
			} else {
				sum -= v
			}
		}
		null[b] = sum / float64(len(x))
	}

	return Result{
		Observed:    observed,
		PValue:      PlugInPValue(observed, null, AltTwoSided),
		Alternative: AltTwoSided,
		Replicates:  reps,
		Null:        null,
	}, nil
}

// KSample runs a one-way permutation ANOVA. The statistic is the weighted
// between-group sum of squares Σ_g n_g·ȳ_g², which is monotone-equivalent to
// the F statistic under relabeling because the total sum of squares is fixed.
// Each null draw is a uniform random relabeling that preserves group sizes.
func KSample(y []float64, groups []string, reps int, rng *rand.Rand) (Result, error) {
	if len(y) == 0 || len(y) != len(groups) {
		return Result{}, fmt.Errorf("%w: outcome length %d and label length %d must match and be non-empty",
			ErrInvalidInput, len(y), len(groups))
	}
	if reps < 1 {
		return Result{}, fmt.Errorf("%w: replicates %d must be positive", ErrInvalidInput, reps)
	}
	if distinctCount(groups) < 2 {
		return Result{}, fmt.Errorf("%w: need at least 2 groups", ErrInvalidInput)
	}

	observed := weightedGroupSumOfSquares(y, groups)

	shuffled := make([]string, len(groups))
	copy(shuffled, groups)
	null := make(Distribution, reps)
	for b := 0; b < reps; b++ {
		shuffleLabels(shuffled, rng)
		null[b] = weightedGroupSumOfSquares(y, shuffled)
	}

	return Result{
		Observed:    observed,
		PValue:      PlugInPValue(observed, null, AltGreater),
		Alternative: AltGreater,
		Replicates:  reps,
		Null:        null,
	}, nil
}

// weightedGroupSumOfSquares computes Σ_g n_g·ȳ_g².
func weightedGroupSumOfSquares(y []float64, groups []string) float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, g := range groups {
		sums[g] += y[i]
		counts[g]++
	}

	total := 0.0
	for g, sum := range sums {
		n := float64(counts[g])
		m := sum / n
		total += n * m * m
	}
	return total
}

// shuffleLabels applies an in-place Fisher-Yates shuffle, which is a uniform
// random bijection over positions and therefore preserves group sizes.
func shuffleLabels(labels []string, rng *rand.Rand) {
	for i := len(labels) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		labels[i], labels[j] = labels[j], labels[i]
	}
}

func distinctCount(labels []string) int {
	seen := make(map[string]struct{}, len(labels))
	for _, g := range labels {
		seen[g] = struct{}{}
	}
	return len(seen)
}

func mean(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

package permutation

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// CombiningFunction names the function that collapses per-outcome p-values
// into one omnibus statistic.
type CombiningFunction string

const (
	// CombineFisher uses -2·Σ log(p_k); large values are extreme.
	CombineFisher CombiningFunction = "fisher"
	// CombineTippett uses -min(p_k); large values are extreme.
	CombineTippett CombiningFunction = "tippett"
	// CombineLiptak uses Σ Φ⁻¹(1-p_k); large values are extreme.
	CombineLiptak CombiningFunction = "liptak"
)

// NPCResult is the outcome of a nonparametric combination of K correlated
// paired tests built from one shared set of sign-flip relabelings.
type NPCResult struct {
	// PerOutcome holds the marginal sign-flip results, column by column.
	PerOutcome []Result `json:"per_outcome"`
	// PartialP are the observed per-outcome p-values.
	PartialP []float64 `json:"partial_p"`
	// Null is the shared B×K null statistic matrix; row b holds the K
	// statistics produced by the b-th relabeling.
	Null [][]float64 `json:"-"`
	// Combined is the observed combining statistic.
	Combined float64 `json:"combined"`
	// CombinedNull is the combining statistic per relabeling.
	CombinedNull Distribution `json:"-"`
	// OmnibusP is the final combined p-value.
	OmnibusP float64 `json:"omnibus_p"`
	// Function records the combining function used.
	Function CombiningFunction `json:"function"`
	// Replicates is B.
	Replicates int `json:"replicates"`
}

// PairedNPC runs paired sign-flip tests jointly across the columns of diffs
// (rows = experimental units, columns = outcomes) and combines them into one
// omnibus p-value.
//
// One sign vector per replicate is applied to every column: the outcomes of
// a unit are flipped together, never independently, which is what preserves
// the dependence structure between outcomes under the null.
func PairedNPC(diffs [][]float64, alternatives []Alternative, reps int, cf CombiningFunction, rng *rand.Rand) (*NPCResult, error) {
	n := len(diffs)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty difference matrix", ErrInvalidInput)
	}
	k := len(diffs[0])
	if k == 0 {
		return nil, fmt.Errorf("%w: no outcome columns", ErrInvalidInput)
	}
	for i, row := range diffs {
		if len(row) != k {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrInvalidInput, i, len(row), k)
		}
	}
	if len(alternatives) != k {
		return nil, fmt.Errorf("%w: %d alternatives for %d outcomes", ErrInvalidInput, len(alternatives), k)
	}
	if reps < 1 {
		return nil, fmt.Errorf("%w: replicates %d must be positive", ErrInvalidInput, reps)
	}

	// Observed statistics: column means.
	observed := make([]float64, k)
	for j := 0; j < k; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += diffs[i][j]
		}
		observed[j] = sum / float64(n)
	}

	// Shared relabelings: one sign vector per replicate, applied jointly.
	null := make([][]float64, reps)
	signs := make([]float64, n)
	for b := 0; b < reps; b++ {
		for i := range signs {
			if rng.Intn(2) == 0 {
				signs[i] = 1
			} else {
				signs[i] = -1
			}
		}
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += signs[i] * diffs[i][j]
			}
			row[j] = sum / float64(n)
		}
		null[b] = row
	}

	// Marginal p-values per outcome against that outcome's null column.
	perOutcome := make([]Result, k)
	partialP := make([]float64, k)
	column := make(Distribution, reps)
	for j := 0; j < k; j++ {
		for b := 0; b < reps; b++ {
			column[b] = null[b][j]
		}
		p := PlugInPValue(observed[j], column, alternatives[j])
		partialP[j] = p
		perOutcome[j] = Result{
			Observed:    observed[j],
			PValue:      p,
			Alternative: alternatives[j],
			Replicates:  reps,
			Null:        append(Distribution(nil), column...),
		}
	}

	// Per-replicate plug-in p-values: rank row b against every other row of
	// the same column, then combine each row's K p-values.
	combinedNull := make(Distribution, reps)
	rowP := make([]float64, k)
	for b := 0; b < reps; b++ {
		for j := 0; j < k; j++ {
			extreme := 0
			for other := 0; other < reps; other++ {
				if other == b {
					continue
				}
				if isExtreme(null[other][j], null[b][j], alternatives[j]) {
					extreme++
				}
			}
			rowP[j] = float64(extreme+1) / float64(reps+1)
		}
		combinedNull[b] = combine(cf, rowP)
	}

	combined := combine(cf, partialP)
	omnibus := PlugInPValue(combined, combinedNull, AltGreater)

	return &NPCResult{
		PerOutcome:   perOutcome,
		PartialP:     partialP,
		Null:         null,
		Combined:     combined,
		CombinedNull: combinedNull,
		OmnibusP:     omnibus,
		Function:     cf,
		Replicates:   reps,
	}, nil
}

// combine collapses per-outcome p-values into a statistic where larger
// means more evidence against the joint null.
func combine(cf CombiningFunction, pValues []float64) float64 {
	switch cf {
	case CombineTippett:
		min := 1.0
		for _, p := range pValues {
			if p < min {
				min = p
			}
		}
		return -min
	case CombineLiptak:
		sum := 0.0
		for _, p := range pValues {
			sum += distuv.UnitNormal.Quantile(1 - clampP(p))
		}
		return sum
	default: // Fisher
		sum := 0.0
		for _, p := range pValues {
			sum += math.Log(clampP(p))
		}
		return -2 * sum
	}
}

// clampP keeps p strictly inside (0, 1) so log and Φ⁻¹ stay finite. Plug-in
// p-values are already ≥ 1/(B+1); the upper clamp guards p = 1.
func clampP(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

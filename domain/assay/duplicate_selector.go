package assay

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoConvergence reports that sequential thresholding exhausted the
// replicate budget without an adjacent pair falling below the threshold.
// Callers handle this explicitly (typically by increasing the budget);
// there is no silent fallback to the full-replicate average.
var ErrNoConvergence = errors.New("no adjacent replicate pair within threshold")

// DuplicateSelector walks sequential replicate assays and accepts the first
// adjacent pair whose percent difference falls below Threshold, mimicking a
// lab protocol that re-runs an assay until duplicates agree.
type DuplicateSelector struct {
	Threshold float64
}

// Selection records an accepted duplicate pair.
type Selection struct {
	// Index is the position of the first member of the accepted pair.
	Index int
	// Value is the pairwise mean of the accepted pair.
	Value float64
	// AssaysUsed is how many replicate assays were consumed (Index + 2).
	AssaysUsed int
}

// PercentDifference is the symmetric relative discrepancy |a-b| / mean(a,b).
func PercentDifference(a, b float64) float64 {
	mean := (a + b) / 2
	if mean == 0 {
		return math.Inf(1)
	}
	return math.Abs(a-b) / math.Abs(mean)
}

// Select scans the assay sequence for the first adjacent pair within the
// threshold. Returns ErrNoConvergence if no pair qualifies.
func (s DuplicateSelector) Select(assays []float64) (Selection, error) {
	if s.Threshold <= 0 {
		return Selection{}, fmt.Errorf("%w: threshold %g must be positive", ErrInvalidParameter, s.Threshold)
	}
	if len(assays) < 2 {
		return Selection{}, fmt.Errorf("%w: need at least 2 assays, got %d", ErrInvalidParameter, len(assays))
	}

	for i := 0; i+1 < len(assays); i++ {
		if PercentDifference(assays[i], assays[i+1]) < s.Threshold {
			return Selection{
				Index:      i,
				Value:      (assays[i] + assays[i+1]) / 2,
				AssaysUsed: i + 2,
			}, nil
		}
	}
	return Selection{}, fmt.Errorf("%w after %d assays", ErrNoConvergence, len(assays))
}

// SelectColumns applies Select to every column of a replicate×trial matrix
// (rows = sequential replicate index, columns = independent trials). The
// first non-converging column aborts with its index in the error.
func (s DuplicateSelector) SelectColumns(matrix [][]float64) ([]Selection, error) {
	if len(matrix) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidParameter)
	}

	cols := len(matrix[0])
	selections := make([]Selection, cols)
	column := make([]float64, len(matrix))
	for j := 0; j < cols; j++ {
		for i := range matrix {
			column[i] = matrix[i][j]
		}
		sel, err := s.Select(column)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", j, err)
		}
		selections[j] = sel
	}
	return selections, nil
}

package assay

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// ErrDegenerateVariance reports that the bias-corrected squared true value
// came out non-positive, which happens for small replicate counts or large
// error variance. It is a property of the data, not a programming error.
var ErrDegenerateVariance = errors.New("bias-corrected squared true value is non-positive")

// VarianceEstimate is the moment-based decomposition of r replicate assays
// of one true value under the multiplicative error model S = s·δ.
type VarianceEstimate struct {
	// Mean is the sample mean S̄ of the replicates.
	Mean float64 `json:"mean"`
	// SampleVariance is the unbiased sample variance V̂ = Σ(Sᵢ-S̄)²/(r-1).
	SampleVariance float64 `json:"sample_variance"`
	// TrueSquared is ŝ² = S̄² - V̂/r, the bias-corrected estimate of s².
	TrueSquared float64 `json:"true_squared"`
	// ErrorVariance is σ̂_δ² = V̂/ŝ². NaN when TrueSquared ≤ 0. The ratio of
	// two unbiased quantities is itself only approximately unbiased, and the
	// approximation improves with r.
	ErrorVariance float64 `json:"error_variance"`
	// Replicates is r.
	Replicates int `json:"replicates"`
}

// EstimateErrorVariance computes the moment-based error variance estimate
// from r ≥ 2 replicate assays. On a degenerate ŝ² the estimate is returned
// with ErrorVariance = NaN alongside ErrDegenerateVariance so the caller can
// still inspect the moments.
func EstimateErrorVariance(assays []float64) (VarianceEstimate, error) {
	if len(assays) < 2 {
		return VarianceEstimate{}, fmt.Errorf("%w: need at least 2 replicates, got %d", ErrInvalidParameter, len(assays))
	}

	mean, err := stats.Mean(assays)
	if err != nil {
		return VarianceEstimate{}, err
	}
	variance, err := stats.SampleVariance(assays)
	if err != nil {
		return VarianceEstimate{}, err
	}

	r := float64(len(assays))
	est := VarianceEstimate{
		Mean:           mean,
		SampleVariance: variance,
		TrueSquared:    mean*mean - variance/r,
		Replicates:     len(assays),
	}

	if est.TrueSquared <= 0 {
		est.ErrorVariance = math.NaN()
		return est, ErrDegenerateVariance
	}

	est.ErrorVariance = variance / est.TrueSquared
	return est, nil
}

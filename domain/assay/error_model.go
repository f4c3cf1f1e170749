package assay

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidParameter reports error-model parameters that are inconsistent
// with the support of the underlying beta distribution.
var ErrInvalidParameter = errors.New("invalid error model parameter")

// ErrorModel draws multiplicative measurement error factors with mean 1.
// An observed assay is trueValue * Draw(rng).
type ErrorModel interface {
	// Draw returns one multiplicative error factor, advancing rng.
	Draw(rng *rand.Rand) float64

	// Name identifies the model in result tables.
	Name() string

	// Variance returns the theoretical variance of the error factor.
	Variance() float64
}

// SymmetricErrorModel draws errors from a symmetric beta distribution
// rescaled to [Low, High]. The factor mean is the midpoint of the bounds,
// so bounds symmetric around 1 give an unbiased assay.
type SymmetricErrorModel struct {
	Low    float64
	High   float64
	StdDev float64

	shape float64
}

// NewSymmetricErrorModel validates the bounds/stddev combination and derives
// the beta shape parameter. The maximum standard deviation a symmetric beta
// on [Low, High] can attain is (High-Low)/2; anything at or beyond that bound
// implies a non-positive shape.
func NewSymmetricErrorModel(low, high, stdDev float64) (*SymmetricErrorModel, error) {
	if high <= low {
		return nil, fmt.Errorf("%w: bounds (%g, %g) are not an interval", ErrInvalidParameter, low, high)
	}
	if stdDev <= 0 {
		return nil, fmt.Errorf("%w: standard deviation %g must be positive", ErrInvalidParameter, stdDev)
	}

	span := high - low
	shape := span*span/(8*stdDev*stdDev) - 0.5
	if shape <= 0 {
		return nil, fmt.Errorf("%w: stddev %g exceeds the bound implied by support (%g, %g)",
			ErrInvalidParameter, stdDev, low, high)
	}

	return &SymmetricErrorModel{Low: low, High: high, StdDev: stdDev, shape: shape}, nil
}

// Draw returns δ = (δ* - 0.5)·(High-Low) + midpoint, with δ* ~ Beta(α, α).
func (m *SymmetricErrorModel) Draw(rng *rand.Rand) float64 {
	dist := distuv.Beta{Alpha: m.shape, Beta: m.shape, Src: rng}
	raw := dist.Rand()
	return (raw-0.5)*(m.High-m.Low) + (m.Low+m.High)/2
}

// Name identifies the model in result tables.
func (m *SymmetricErrorModel) Name() string {
	return fmt.Sprintf("symmetric(%g,%g,sd=%g)", m.Low, m.High, m.StdDev)
}

// Variance returns StdDev² (exact for the rescaled symmetric beta).
func (m *SymmetricErrorModel) Variance() float64 {
	return m.StdDev * m.StdDev
}

// SkewedErrorModel draws errors as δ = δ* - α/(α+β) + 1 with δ* ~ Beta(α, β).
// The mean is exactly 1 regardless of skew; variance and skewness follow from
// the shape parameters.
type SkewedErrorModel struct {
	Alpha float64
	Beta  float64
}

// NewSkewedErrorModel validates the shape parameters.
func NewSkewedErrorModel(alpha, beta float64) (*SkewedErrorModel, error) {
	if alpha <= 0 || beta <= 0 {
		return nil, fmt.Errorf("%w: beta shape parameters (%g, %g) must be positive", ErrInvalidParameter, alpha, beta)
	}
	return &SkewedErrorModel{Alpha: alpha, Beta: beta}, nil
}

// Draw returns the recentered beta variate.
func (m *SkewedErrorModel) Draw(rng *rand.Rand) float64 {
	dist := distuv.Beta{Alpha: m.Alpha, Beta: m.Beta, Src: rng}
	raw := dist.Rand()
	return raw - m.Alpha/(m.Alpha+m.Beta) + 1
}

// Name identifies the model in result tables.
func (m *SkewedErrorModel) Name() string {
	return fmt.Sprintf("skewed(a=%g,b=%g)", m.Alpha, m.Beta)
}

// Variance returns αβ / ((α+β)²(α+β+1)).
func (m *SkewedErrorModel) Variance() float64 {
	s := m.Alpha + m.Beta
	return m.Alpha * m.Beta / (s * s * (s + 1))
}

// Simulate applies one independent error draw per replicate of each true value.
// The result is row-major: replicate r of trueValues[i] sits at i*replicates+r.
func Simulate(model ErrorModel, trueValues []float64, replicates int, rng *rand.Rand) ([]float64, error) {
	if len(trueValues) == 0 {
		return nil, fmt.Errorf("%w: no true values", ErrInvalidParameter)
	}
	if replicates < 1 {
		return nil, fmt.Errorf("%w: replicates %d must be positive", ErrInvalidParameter, replicates)
	}

	out := make([]float64, 0, len(trueValues)*replicates)
	for _, tv := range trueValues {
		for r := 0; r < replicates; r++ {
			out = append(out, tv*model.Draw(rng))
		}
	}
	return out, nil
}

// SimulateMatrix fills a replicates×len(trueValues) matrix. Column j holds
// sequential replicate assays of trueValues[j]; columns are filled one at a
// time so the draw order is fixed for a given seed.
func SimulateMatrix(model ErrorModel, trueValues []float64, replicates int, rng *rand.Rand) ([][]float64, error) {
	if len(trueValues) == 0 {
		return nil, fmt.Errorf("%w: no true values", ErrInvalidParameter)
	}
	if replicates < 1 {
		return nil, fmt.Errorf("%w: replicates %d must be positive", ErrInvalidParameter, replicates)
	}

	matrix := make([][]float64, replicates)
	for i := range matrix {
		matrix[i] = make([]float64, len(trueValues))
	}
	for j, tv := range trueValues {
		for i := 0; i < replicates; i++ {
			matrix[i][j] = tv * model.Draw(rng)
		}
	}
	return matrix, nil
}

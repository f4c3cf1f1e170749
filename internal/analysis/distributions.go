package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "socassay/internal/errors"
)

// Distributions provides unified access to the parametric reference
// distributions used alongside the permutation machinery.
type Distributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// TTestPValue computes the two-tailed p-value for a t-statistic using
// Student's t-distribution.
func (d *Distributions) TTestPValue(tStatistic float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	df := float64(degreesOfFreedom)
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	return 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
}

// FTestPValue computes the upper-tail p-value for an F-statistic.
func (d *Distributions) FTestPValue(fStatistic float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 {
		return 1.0
	}

	fDist := distuv.F{D1: float64(df1), D2: float64(df2)}
	return 1 - fDist.CDF(fStatistic)
}

// NormalCDF computes the cumulative distribution function for the standard normal.
func (d *Distributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile computes the standard normal quantile (inverse CDF).
func (d *Distributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// ConfidenceIntervalMean computes a t-based confidence interval for a
// population mean from its sample mean and standard deviation.
func (d *Distributions) ConfidenceIntervalMean(sampleMean, sampleStd float64, sampleSize int, confidenceLevel float64) (lower, upper float64) {
	if sampleSize < 2 {
		return sampleMean, sampleMean
	}

	df := float64(sampleSize - 1)
	alpha := 1.0 - confidenceLevel
	tCritical := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1.0 - alpha/2.0)

	se := sampleStd / math.Sqrt(float64(sampleSize))
	margin := tCritical * se
	return sampleMean - margin, sampleMean + margin
}

// ANOVAResult holds the classical one-way ANOVA decomposition.
type ANOVAResult struct {
	FStatistic float64 `json:"f_statistic"`
	DFBetween  int     `json:"df_between"`
	DFWithin   int     `json:"df_within"`
	PValue     float64 `json:"p_value"`
}

// OneWayANOVA computes the classical F-test across the groups defined by
// labels. It serves as the parametric cross-check next to the permutation
// ANOVA, which shares the same grouping but makes no normality assumption.
func (d *Distributions) OneWayANOVA(values []float64, labels []string) (*ANOVAResult, error) {
	if len(values) != len(labels) {
		return nil, apperrors.InvalidInput("values and labels must have equal length")
	}
	if len(values) < 3 {
		return nil, apperrors.InvalidInput("one-way ANOVA requires at least 3 observations")
	}

	groups := make(map[string][]float64)
	for i, v := range values {
		groups[labels[i]] = append(groups[labels[i]], v)
	}

	k := len(groups)
	n := len(values)
	if k < 2 {
		return nil, apperrors.InvalidInput("one-way ANOVA requires at least 2 groups")
	}
	if n-k <= 0 {
		return nil, apperrors.InvalidInput("one-way ANOVA requires more observations than groups")
	}

	var grand float64
	for _, v := range values {
		grand += v
	}
	grand /= float64(n)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		var gm float64
		for _, v := range g {
			gm += v
		}
		gm /= float64(len(g))

		ssBetween += float64(len(g)) * (gm - grand) * (gm - grand)
		for _, v := range g {
			ssWithin += (v - gm) * (v - gm)
		}
	}

	dfBetween := k - 1
	dfWithin := n - k

	msWithin := ssWithin / float64(dfWithin)
	if msWithin == 0 {
		return nil, apperrors.InvalidInput("zero within-group variance")
	}

	f := (ssBetween / float64(dfBetween)) / msWithin
	return &ANOVAResult{
		FStatistic: f,
		DFBetween:  dfBetween,
		DFWithin:   dfWithin,
		PValue:     d.FTestPValue(f, dfBetween, dfWithin),
	}, nil
}

package run

import (
	"socassay/domain/core"
)

// Kind distinguishes the two analysis pipelines.
type Kind string

const (
	KindSimulation Kind = "simulation"
	KindReanalysis Kind = "reanalysis"
)

// Manifest captures the determinism metadata of one analysis run. Two runs
// with equal fingerprints are replays of each other.
type Manifest struct {
	RunID        core.RunID     `json:"run_id" db:"id"`
	Kind         Kind           `json:"kind" db:"kind"`
	Seed         int64          `json:"seed" db:"seed"`
	Permutations int            `json:"permutations" db:"permutations"`
	CodeVersion  string         `json:"code_version" db:"code_version"`
	Fingerprint  core.Hash      `json:"fingerprint" db:"fingerprint"`
	CreatedAt    core.Timestamp `json:"created_at" db:"created_at"`
}

// NewManifest creates a manifest with a fresh run ID. The fingerprint is
// filled in by the service once all run inputs are known.
func NewManifest(kind Kind, seed int64, permutations int) Manifest {
	return Manifest{
		RunID:        core.RunID(core.NewID()),
		Kind:         kind,
		Seed:         seed,
		Permutations: permutations,
		CodeVersion:  "v0.1.0",
		CreatedAt:    core.Now(),
	}
}

// OutcomeTestResult is the per-outcome row of the field-trial reanalysis.
type OutcomeTestResult struct {
	Outcome string `json:"outcome"`

	// Paired before/after summary.
	MeanDiff float64 `json:"mean_diff"`
	CILow    float64 `json:"ci_low"`
	CIHigh   float64 `json:"ci_high"`

	// Paired sign-flip test, two-sided, sharing the NPC relabelings.
	PermutationP float64 `json:"permutation_p"`
	QValue       float64 `json:"q_value"`

	// One-way permutation ANOVA across treatment groups.
	GroupStatistic    float64 `json:"group_statistic"`
	GroupPermutationP float64 `json:"group_permutation_p"`

	// Parametric cross-check on the same grouping.
	ClassicalF float64 `json:"classical_f"`
	ClassicalP float64 `json:"classical_p"`
}

// ReanalysisResult is the payload of one field-trial reanalysis run.
type ReanalysisResult struct {
	Manifest  Manifest            `json:"manifest"`
	Plots     int                 `json:"plots"`
	Groups    []string            `json:"groups"`
	Outcomes  []OutcomeTestResult `json:"outcomes"`
	Combining string              `json:"combining"`
	OmnibusP  float64             `json:"omnibus_p"`
}

// ScenarioResult is the payload row for one simulation scenario: one error
// model at one true value with one acceptance threshold.
type ScenarioResult struct {
	Model      string  `json:"model"`
	TrueValue  float64 `json:"true_value"`
	Threshold  float64 `json:"threshold"`
	Trials     int     `json:"trials"`
	Replicates int     `json:"replicates"`

	// Sequential duplicate selection.
	AcceptedMean    float64 `json:"accepted_mean"`
	AcceptedRelBias float64 `json:"accepted_rel_bias"`
	MeanAssaysUsed  float64 `json:"mean_assays_used"`
	NoConvergence   int     `json:"no_convergence"`

	// Full-replicate average, the unbiased reference.
	FullMean    float64 `json:"full_mean"`
	FullRelBias float64 `json:"full_rel_bias"`

	// Moment-based variance estimator round trip, averaged over trials
	// with a usable (non-degenerate) estimate.
	MeanErrorVariance        float64 `json:"mean_error_variance"`
	TheoreticalErrorVariance float64 `json:"theoretical_error_variance"`
	Degenerate               int     `json:"degenerate"`
}

// SimulationStudyResult is the payload of one Monte Carlo simulation run.
type SimulationStudyResult struct {
	Manifest  Manifest         `json:"manifest"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// StoredRun pairs a manifest with its raw payload as persisted.
type StoredRun struct {
	Manifest Manifest `json:"manifest"`
	Payload  []byte   `json:"payload"`
}

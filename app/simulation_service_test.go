package app

import (
	"context"
	"math"
	"testing"

	"socassay/domain/assay"
	"socassay/internal"
	"socassay/internal/testkit"
)

func newSimulationService(t *testing.T) (*SimulationService, *testkit.InMemoryRunStore) {
	t.Helper()
	store := testkit.NewInMemoryRunStore()
	svc := NewSimulationService(testkit.NewRNGAdapter(), store, internal.NewLogger(internal.LogLevelError))
	return svc, store
}

func biasScenarios(t *testing.T) []Scenario {
	t.Helper()
	symmetric, err := assay.NewSymmetricErrorModel(0.5, 1.5, 0.2)
	if err != nil {
		t.Fatalf("failed to build symmetric model: %v", err)
	}
	skewed, err := assay.NewSkewedErrorModel(1, 4)
	if err != nil {
		t.Fatalf("failed to build skewed model: %v", err)
	}
	return []Scenario{
		{Model: symmetric, TrueValue: 2},
		{Model: skewed, TrueValue: 2},
	}
}

func TestRunStudy_SelectionBiasByModel(t *testing.T) {
	svc, _ := newSimulationService(t)

	result, err := svc.RunStudy(context.Background(), SimulationRequest{
		Scenarios:  biasScenarios(t),
		Trials:     2000,
		Replicates: 60,
		Threshold:  0.05,
		Seed:       42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Scenarios) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(result.Scenarios))
	}

	symmetric, skewed := result.Scenarios[0], result.Scenarios[1]

	// A symmetric error model leaves the accepted duplicate mean unbiased.
	if math.Abs(symmetric.AcceptedRelBias) > 0.015 {
		t.Errorf("symmetric model should be unbiased, got rel bias %v", symmetric.AcceptedRelBias)
	}
	// The right-skewed model concentrates mass below its mean, so accepted
	// duplicates systematically undershoot.
	if skewed.AcceptedRelBias > -0.015 {
		t.Errorf("right-skewed model should undershoot, got rel bias %v", skewed.AcceptedRelBias)
	}

	// The full-replicate mean stays unbiased either way.
	for _, sc := range result.Scenarios {
		if math.Abs(sc.FullRelBias) > 0.01 {
			t.Errorf("%s: full-replicate mean should be unbiased, got %v", sc.Model, sc.FullRelBias)
		}
	}
}

func TestRunStudy_VarianceRoundTrip(t *testing.T) {
	svc, _ := newSimulationService(t)

	result, err := svc.RunStudy(context.Background(), SimulationRequest{
		Scenarios:  biasScenarios(t)[:1],
		Trials:     1500,
		Replicates: 100,
		Threshold:  0.05,
		Seed:       7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sc := result.Scenarios[0]
	if sc.TheoreticalErrorVariance <= 0 {
		t.Fatalf("expected positive theoretical variance, got %v", sc.TheoreticalErrorVariance)
	}
	rel := math.Abs(sc.MeanErrorVariance-sc.TheoreticalErrorVariance) / sc.TheoreticalErrorVariance
	if rel > 0.2 {
		t.Errorf("estimated error variance %v too far from theoretical %v",
			sc.MeanErrorVariance, sc.TheoreticalErrorVariance)
	}
}

func TestRunStudy_DeterministicAndPersisted(t *testing.T) {
	svc, store := newSimulationService(t)

	req := SimulationRequest{
		Scenarios:  biasScenarios(t),
		Trials:     200,
		Replicates: 40,
		Threshold:  0.05,
		Seed:       99,
	}

	first, err := svc.RunStudy(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.RunStudy(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Manifest.Fingerprint != second.Manifest.Fingerprint {
		t.Errorf("same inputs must give the same fingerprint")
	}
	for i := range first.Scenarios {
		if first.Scenarios[i] != second.Scenarios[i] {
			t.Errorf("scenario %d not reproducible:\n%+v\n%+v", i, first.Scenarios[i], second.Scenarios[i])
		}
	}

	stored, err := store.GetRun(context.Background(), first.Manifest.RunID)
	if err != nil {
		t.Fatalf("run should be persisted: %v", err)
	}
	if len(stored.Payload) == 0 {
		t.Error("stored run has empty payload")
	}
}

func TestRunStudy_InvalidRequests(t *testing.T) {
	svc, _ := newSimulationService(t)
	ctx := context.Background()

	if _, err := svc.RunStudy(ctx, SimulationRequest{Trials: 10, Replicates: 5, Threshold: 0.05}); err == nil {
		t.Error("empty scenario list should be rejected")
	}
	if _, err := svc.RunStudy(ctx, SimulationRequest{Scenarios: biasScenarios(t), Trials: 0, Replicates: 5, Threshold: 0.05}); err == nil {
		t.Error("zero trials should be rejected")
	}
	if _, err := svc.RunStudy(ctx, SimulationRequest{Scenarios: biasScenarios(t), Trials: 10, Replicates: 1, Threshold: 0.05}); err == nil {
		t.Error("single replicate should be rejected")
	}
}

func TestDefaultScenarios(t *testing.T) {
	scenarios, err := DefaultScenarios()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenarios) != 16 {
		t.Fatalf("expected 4 models x 4 true values, got %d", len(scenarios))
	}
	for _, sc := range scenarios {
		if sc.Model == nil || sc.TrueValue <= 0 {
			t.Errorf("invalid scenario: %+v", sc)
		}
	}
}

package report

import (
	"strings"
	"testing"

	"socassay/domain/run"
)

func sampleReanalysis() *run.ReanalysisResult {
	manifest := run.NewManifest(run.KindReanalysis, 42, 5000)
	return &run.ReanalysisResult{
		Manifest: manifest,
		Plots:    24,
		Groups:   []string{"control", "compost"},
		Outcomes: []run.OutcomeTestResult{
			{Outcome: "soc_pct", MeanDiff: 0.42, CILow: 0.1, CIHigh: 0.74, PermutationP: 0.012, QValue: 0.024},
			{Outcome: "ph", MeanDiff: -0.05, CILow: -0.2, CIHigh: 0.1, PermutationP: 0.61, QValue: 0.61},
		},
		Combining: "fisher",
		OmnibusP:  0.02,
	}
}

func TestReanalysisReport(t *testing.T) {
	md := NewBuilder().Reanalysis(sampleReanalysis())

	for _, want := range []string{
		"# Field Trial Reanalysis",
		"| soc_pct |",
		"| ph |",
		"fisher",
		"Paired plots: 24",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// One header row, one separator, one row per outcome.
	if n := strings.Count(md, "| soc_pct |"); n != 1 {
		t.Errorf("expected exactly one soc_pct row, got %d", n)
	}
}

func TestSimulationReport(t *testing.T) {
	manifest := run.NewManifest(run.KindSimulation, 7, 0)
	result := &run.SimulationStudyResult{
		Manifest: manifest,
		Scenarios: []run.ScenarioResult{
			{Model: "symmetric(0.50,1.50)", TrueValue: 2, Threshold: 0.05, AcceptedRelBias: 0.001},
			{Model: "skewed(1,4)", TrueValue: 2, Threshold: 0.05, AcceptedRelBias: -0.04},
		},
	}

	md := NewBuilder().Simulation(result)
	if !strings.Contains(md, "symmetric(0.50,1.50)") || !strings.Contains(md, "skewed(1,4)") {
		t.Errorf("report missing scenario rows:\n%s", md)
	}
}

func TestRenderHTML(t *testing.T) {
	md := NewBuilder().Reanalysis(sampleReanalysis())
	out := string(RenderHTML(md))

	if !strings.Contains(out, "<table>") {
		t.Error("expected pipe table rendered as HTML table")
	}
	if !strings.Contains(out, "<h1") {
		t.Error("expected top level heading in HTML output")
	}
	if !strings.Contains(out, "soc_pct") {
		t.Error("expected outcome names in HTML output")
	}
}

package excel

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"socassay/domain/run"
)

func TestExportReanalysis(t *testing.T) {
	result := &run.ReanalysisResult{
		Manifest: run.NewManifest(run.KindReanalysis, 42, 1000),
		Plots:    24,
		Outcomes: []run.OutcomeTestResult{
			{Outcome: "soc_pct", MeanDiff: 0.42, PermutationP: 0.012, QValue: 0.024},
		},
		Combining: "fisher",
		OmnibusP:  0.02,
	}

	path := filepath.Join(t.TempDir(), "reanalysis.xlsx")
	if err := NewResultExporter().ExportReanalysis(path, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue(sheetName, "A1")
	if err != nil || header != "outcome" {
		t.Errorf("expected header 'outcome' in A1, got %q (%v)", header, err)
	}
	name, err := f.GetCellValue(sheetName, "A2")
	if err != nil || name != "soc_pct" {
		t.Errorf("expected 'soc_pct' in A2, got %q (%v)", name, err)
	}
}

func TestExportSimulation(t *testing.T) {
	result := &run.SimulationStudyResult{
		Manifest: run.NewManifest(run.KindSimulation, 42, 0),
		Scenarios: []run.ScenarioResult{
			{Model: "symmetric(0.5,1.5,sd=0.2)", TrueValue: 2, Trials: 1000},
			{Model: "skewed(a=1,b=4)", TrueValue: 2, Trials: 1000},
		},
	}

	path := filepath.Join(t.TempDir(), "simulation.xlsx")
	if err := NewResultExporter().ExportSimulation(path, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 scenario rows, got %d", len(rows))
	}
	if rows[1][0] != "symmetric(0.5,1.5,sd=0.2)" {
		t.Errorf("unexpected first scenario: %v", rows[1][0])
	}
}

package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"socassay/domain/run"
)

const sheetName = "Sheet1"

// ResultExporter writes analysis run results to Excel workbooks.
type ResultExporter struct{}

// NewResultExporter creates a result exporter
func NewResultExporter() *ResultExporter {
	return &ResultExporter{}
}

// ExportReanalysis writes the per-outcome test table of a reanalysis run.
func (e *ResultExporter) ExportReanalysis(path string, result *run.ReanalysisResult) error {
	f := excelize.NewFile()
	defer f.Close()

	headers := []string{
		"outcome", "mean_diff", "ci_low", "ci_high",
		"permutation_p", "q_value",
		"group_statistic", "group_permutation_p",
		"classical_f", "classical_p",
	}
	if err := writeRow(f, 1, toCells(headers)); err != nil {
		return err
	}

	for i, o := range result.Outcomes {
		cells := []interface{}{
			o.Outcome, o.MeanDiff, o.CILow, o.CIHigh,
			o.PermutationP, o.QValue,
			o.GroupStatistic, o.GroupPermutationP,
			o.ClassicalF, o.ClassicalP,
		}
		if err := writeRow(f, i+2, cells); err != nil {
			return err
		}
	}

	summaryRow := len(result.Outcomes) + 3
	if err := writeRow(f, summaryRow, []interface{}{"omnibus_p", result.OmnibusP, "combining", result.Combining}); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// ExportSimulation writes the scenario grid of a simulation study run.
func (e *ResultExporter) ExportSimulation(path string, result *run.SimulationStudyResult) error {
	f := excelize.NewFile()
	defer f.Close()

	headers := []string{
		"model", "true_value", "threshold", "trials", "replicates",
		"accepted_mean", "accepted_rel_bias", "mean_assays_used", "no_convergence",
		"full_mean", "full_rel_bias",
		"mean_error_variance", "theoretical_error_variance", "degenerate",
	}
	if err := writeRow(f, 1, toCells(headers)); err != nil {
		return err
	}

	for i, s := range result.Scenarios {
		cells := []interface{}{
			s.Model, s.TrueValue, s.Threshold, s.Trials, s.Replicates,
			s.AcceptedMean, s.AcceptedRelBias, s.MeanAssaysUsed, s.NoConvergence,
			s.FullMean, s.FullRelBias,
			s.MeanErrorVariance, s.TheoreticalErrorVariance, s.Degenerate,
		}
		if err := writeRow(f, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, cells []interface{}) error {
	for col, value := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to resolve cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, name, value); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", name, err)
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

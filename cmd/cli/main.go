package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"socassay/adapters/excel"
	"socassay/adapters/fieldcsv"
	"socassay/app"
	"socassay/domain/permutation"
	"socassay/domain/trial"
	"socassay/internal"
	"socassay/internal/report"
	"socassay/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "socassay-cli",
		Short: "Soil assay error simulation and field trial reanalysis",
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newReanalyzeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSimulateCmd() *cobra.Command {
	var seed int64
	var trials, replicates int
	var threshold float64
	var exportPath string
	var asMarkdown bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the assay error Monte Carlo simulation study",
		Long: `Run the duplicate-selection bias study over the default scenario grid:
symmetric and skewed multiplicative error models at several true values.

Example: socassay-cli simulate --trials 1000 --replicates 50 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), seed, trials, replicates, threshold, exportPath, asMarkdown)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")
	cmd.Flags().IntVar(&trials, "trials", 1000, "Independent trials per scenario")
	cmd.Flags().IntVar(&replicates, "replicates", 50, "Sequential replicate assays per trial")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.05, "Duplicate acceptance threshold (percent difference)")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the scenario grid to this .xlsx path")
	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "Print a markdown report instead of JSON")

	return cmd
}

func runSimulate(ctx context.Context, seed int64, trials, replicates int, threshold float64, exportPath string, asMarkdown bool) error {
	logger := internal.NewDefaultLogger()
	store := testkit.NewInMemoryRunStore()
	svc := app.NewSimulationService(testkit.NewRNGAdapter(), store, logger)

	scenarios, err := app.DefaultScenarios()
	if err != nil {
		return err
	}

	result, err := svc.RunStudy(ctx, app.SimulationRequest{
		Scenarios:  scenarios,
		Trials:     trials,
		Replicates: replicates,
		Threshold:  threshold,
		Seed:       seed,
	})
	if err != nil {
		return err
	}

	if exportPath != "" {
		if err := excel.NewResultExporter().ExportSimulation(exportPath, result); err != nil {
			return err
		}
		fmt.Printf("Scenario grid written to %s\n", exportPath)
	}

	if asMarkdown {
		fmt.Println(report.NewBuilder().Simulation(result))
		return nil
	}
	return printJSON(result)
}

func newReanalyzeCmd() *cobra.Command {
	var seed int64
	var permutations int
	var beforeYear, afterYear int
	var combining string
	var sentinelDepth, excludedTreatment string
	var exportPath string
	var asMarkdown bool

	cmd := &cobra.Command{
		Use:   "reanalyze [trial-file]",
		Short: "Rerun the paired permutation analysis on a field trial table",
		Long: `Reanalyze a long-format field trial table (CSV or XLSX): paired sign-flip
tests per outcome with shared relabelings, BH q-values, an omnibus
nonparametric combination, and a treatment-group permutation ANOVA.

Example: socassay-cli reanalyze trial.csv --before 2015 --after 2019 --permutations 5000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.ReanalysisRequest{
				Filter: trial.Filter{
					SentinelDepth:     sentinelDepth,
					ExcludedTreatment: excludedTreatment,
				},
				BeforeYear:   beforeYear,
				AfterYear:    afterYear,
				Permutations: permutations,
				Seed:         seed,
				Combining:    permutation.CombiningFunction(combining),
			}
			return runReanalyze(cmd.Context(), args[0], req, exportPath, asMarkdown)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")
	cmd.Flags().IntVar(&permutations, "permutations", 5000, "Sign-flip replicates")
	cmd.Flags().IntVar(&beforeYear, "before", 0, "Baseline year (required)")
	cmd.Flags().IntVar(&afterYear, "after", 0, "Follow-up year (required)")
	cmd.Flags().StringVar(&combining, "combining", "fisher", "NPC combining function: fisher, tippett or liptak")
	cmd.Flags().StringVar(&sentinelDepth, "sentinel-depth", "TOT", "Depth code marking aggregate rows to drop")
	cmd.Flags().StringVar(&excludedTreatment, "excluded-treatment", "", "Treatment level to drop entirely")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the per-outcome table to this .xlsx path")
	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "Print a markdown report instead of JSON")
	_ = cmd.MarkFlagRequired("before")
	_ = cmd.MarkFlagRequired("after")

	return cmd
}

func runReanalyze(ctx context.Context, filePath string, req app.ReanalysisRequest, exportPath string, asMarkdown bool) error {
	logger := internal.NewDefaultLogger()
	store := testkit.NewInMemoryRunStore()
	reader := fieldcsv.NewTrialReader(filePath)
	svc := app.NewReanalysisService(reader, testkit.NewRNGAdapter(), store, logger)

	result, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	if exportPath != "" {
		if err := excel.NewResultExporter().ExportReanalysis(exportPath, result); err != nil {
			return err
		}
		fmt.Printf("Result table written to %s\n", exportPath)
	}

	if asMarkdown {
		fmt.Println(report.NewBuilder().Reanalysis(result))
		return nil
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

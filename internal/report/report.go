// Package report renders analysis run results as markdown documents and
// converts them to HTML for the web surface.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"socassay/domain/run"
)

// Builder renders run payloads as markdown.
type Builder struct{}

// NewBuilder creates a report builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Reanalysis renders the per-outcome test table of a reanalysis run.
func (b *Builder) Reanalysis(result *run.ReanalysisResult) string {
	var sb strings.Builder

	sb.WriteString("# Field Trial Reanalysis\n\n")
	fmt.Fprintf(&sb, "- Run: `%s`\n", result.Manifest.RunID)
	fmt.Fprintf(&sb, "- Seed: %d, permutations: %d\n", result.Manifest.Seed, result.Manifest.Permutations)
	fmt.Fprintf(&sb, "- Paired plots: %d\n", result.Plots)
	fmt.Fprintf(&sb, "- Treatment groups: %s\n\n", strings.Join(result.Groups, ", "))

	sb.WriteString("## Per-outcome tests\n\n")
	sb.WriteString("| Outcome | Mean diff | 95% CI | Perm. p | q-value | Group stat | Group p | F | F p |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, o := range result.Outcomes {
		fmt.Fprintf(&sb, "| %s | %.4f | [%.4f, %.4f] | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
			o.Outcome, o.MeanDiff, o.CILow, o.CIHigh,
			o.PermutationP, o.QValue,
			o.GroupStatistic, o.GroupPermutationP,
			o.ClassicalF, o.ClassicalP)
	}

	sb.WriteString("\n## Omnibus\n\n")
	fmt.Fprintf(&sb, "Nonparametric combination (%s): p = %.4f\n", result.Combining, result.OmnibusP)

	return sb.String()
}

// Simulation renders the scenario grid of a simulation study run.
func (b *Builder) Simulation(result *run.SimulationStudyResult) string {
	var sb strings.Builder

	sb.WriteString("# Assay Error Simulation Study\n\n")
	fmt.Fprintf(&sb, "- Run: `%s`\n", result.Manifest.RunID)
	fmt.Fprintf(&sb, "- Seed: %d\n\n", result.Manifest.Seed)

	sb.WriteString("## Scenario grid\n\n")
	sb.WriteString("| Model | True value | Threshold | Accepted mean | Rel. bias | Full-mean bias | Assays used | No conv. | Est. error var | True error var | Degenerate |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|---|---|---|\n")
	for _, s := range result.Scenarios {
		fmt.Fprintf(&sb, "| %s | %.2f | %.2f | %.4f | %.4f | %.4f | %.2f | %d | %.5f | %.5f | %d |\n",
			s.Model, s.TrueValue, s.Threshold,
			s.AcceptedMean, s.AcceptedRelBias, s.FullRelBias,
			s.MeanAssaysUsed, s.NoConvergence,
			s.MeanErrorVariance, s.TheoreticalErrorVariance, s.Degenerate)
	}

	return sb.String()
}

// RenderHTML converts a markdown report into an HTML document.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))

	opts := html.RendererOptions{Flags: html.CommonFlags | html.CompletePage}
	renderer := html.NewRenderer(opts)
	return markdown.Render(doc, renderer)
}

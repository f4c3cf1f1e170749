// Package trial models the agricultural field experiment: per-plot soil
// assay records across years, treatment/block structure, and the before/after
// difference matrix the permutation reanalysis runs on.
package trial

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTable reports structural problems in the trial data.
var ErrInvalidTable = errors.New("invalid trial table")

// Record is one plot × year × depth observation with its measured soil
// properties keyed by outcome name.
type Record struct {
	Year      int                `json:"year"`
	Plot      string             `json:"plot"`
	Treatment string             `json:"treatment"`
	Block     string             `json:"block"`
	Depth     string             `json:"depth"`
	Outcomes  map[string]float64 `json:"outcomes"`
}

// Table is an ordered collection of records with a declared outcome order.
type Table struct {
	Records     []Record `json:"records"`
	OutcomeKeys []string `json:"outcome_keys"`
}

// Filter drops rows carrying a sentinel depth code or an excluded treatment
// level. Empty filter fields match nothing.
type Filter struct {
	SentinelDepth     string
	ExcludedTreatment string
}

// Filter returns a new table without the filtered rows. The outcome order is
// preserved.
func (t Table) Filter(f Filter) Table {
	kept := make([]Record, 0, len(t.Records))
	for _, r := range t.Records {
		if f.SentinelDepth != "" && r.Depth == f.SentinelDepth {
			continue
		}
		if f.ExcludedTreatment != "" && r.Treatment == f.ExcludedTreatment {
			continue
		}
		kept = append(kept, r)
	}
	return Table{Records: kept, OutcomeKeys: t.OutcomeKeys}
}

// Years returns the distinct years present, ascending.
func (t Table) Years() []int {
	seen := map[int]struct{}{}
	for _, r := range t.Records {
		seen[r.Year] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// OutcomeMatrix holds per-plot before/after differences: rows are plots,
// columns are outcomes in declared order. The row count is fixed across
// columns; plots missing in either year never make it into the matrix.
type OutcomeMatrix struct {
	Plots      []string    `json:"plots"`
	Outcomes   []string    `json:"outcomes"`
	Treatments []string    `json:"treatments"` // aligned with Plots
	Blocks     []string    `json:"blocks"`     // aligned with Plots
	Data       [][]float64 `json:"data"`
}

// Column returns outcome column j as a fresh slice.
func (m *OutcomeMatrix) Column(j int) []float64 {
	col := make([]float64, len(m.Data))
	for i := range m.Data {
		col[i] = m.Data[i][j]
	}
	return col
}

// ColumnByKey returns the column for a named outcome.
func (m *OutcomeMatrix) ColumnByKey(key string) ([]float64, error) {
	for j, k := range m.Outcomes {
		if k == key {
			return m.Column(j), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown outcome %q", ErrInvalidTable, key)
}

// DifferenceMatrix pairs each plot's record in beforeYear with its record in
// afterYear and emits after−before differences for every declared outcome.
// A plot present in only one of the years, duplicated within a year, or
// relabeled between years is rejected rather than imputed.
func DifferenceMatrix(t Table, beforeYear, afterYear int) (*OutcomeMatrix, error) {
	if beforeYear >= afterYear {
		return nil, fmt.Errorf("%w: before year %d must precede after year %d", ErrInvalidTable, beforeYear, afterYear)
	}
	if len(t.OutcomeKeys) == 0 {
		return nil, fmt.Errorf("%w: no outcome columns declared", ErrInvalidTable)
	}

	before := map[string]Record{}
	after := map[string]Record{}
	for _, r := range t.Records {
		switch r.Year {
		case beforeYear:
			if _, dup := before[r.Plot]; dup {
				return nil, fmt.Errorf("%w: plot %s duplicated in year %d", ErrInvalidTable, r.Plot, beforeYear)
			}
			before[r.Plot] = r
		case afterYear:
			if _, dup := after[r.Plot]; dup {
				return nil, fmt.Errorf("%w: plot %s duplicated in year %d", ErrInvalidTable, r.Plot, afterYear)
			}
			after[r.Plot] = r
		}
	}
	if len(before) == 0 || len(after) == 0 {
		return nil, fmt.Errorf("%w: years %d and %d must both have records", ErrInvalidTable, beforeYear, afterYear)
	}

	plots := make([]string, 0, len(before))
	for plot := range before {
		plots = append(plots, plot)
	}
	sort.Strings(plots)

	matrix := &OutcomeMatrix{
		Outcomes: append([]string(nil), t.OutcomeKeys...),
	}
	for _, plot := range plots {
		b := before[plot]
		a, ok := after[plot]
		if !ok {
			return nil, fmt.Errorf("%w: plot %s missing in year %d", ErrInvalidTable, plot, afterYear)
		}
		if a.Treatment != b.Treatment {
			return nil, fmt.Errorf("%w: plot %s changed treatment between years (%s → %s)",
				ErrInvalidTable, plot, b.Treatment, a.Treatment)
		}

		row := make([]float64, len(t.OutcomeKeys))
		for j, key := range t.OutcomeKeys {
			bv, bok := b.Outcomes[key]
			av, aok := a.Outcomes[key]
			if !bok || !aok {
				return nil, fmt.Errorf("%w: plot %s missing outcome %q", ErrInvalidTable, plot, key)
			}
			row[j] = av - bv
		}

		matrix.Plots = append(matrix.Plots, plot)
		matrix.Treatments = append(matrix.Treatments, b.Treatment)
		matrix.Blocks = append(matrix.Blocks, b.Block)
		matrix.Data = append(matrix.Data, row)
	}

	// Plots only present in the after year are just as much a pairing
	// failure as the reverse.
	for plot := range after {
		if _, ok := before[plot]; !ok {
			return nil, fmt.Errorf("%w: plot %s missing in year %d", ErrInvalidTable, plot, beforeYear)
		}
	}

	return matrix, nil
}

package testkit

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"socassay/domain/core"
	"socassay/domain/run"
	"socassay/domain/trial"
	apperrors "socassay/internal/errors"
	"socassay/ports"
)

// RNGAdapter implements the RNGPort interface for deterministic analyses
type RNGAdapter struct{}

// NewRNGAdapter creates an RNG adapter
func NewRNGAdapter() *RNGAdapter {
	return &RNGAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (r *RNGAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(seed)), nil
}

// Stream creates a deterministic RNG stream for a specific run stage.
// The seed is derived by hashing runID + stageName + key into the base seed,
// so the same stage of the same run always replays the same sequence.
func (r *RNGAdapter) Stream(ctx context.Context, runID, stageName, key string, baseSeed int64) (*rand.Rand, error) {
	seed := baseSeed
	if runID != "" {
		seed = int64(hashString(runID)) + seed
	}
	if stageName != "" {
		seed = int64(hashString(stageName)) + seed
	}
	if key != "" {
		seed = int64(hashString(key)) + seed
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}

// InMemoryRunStore implements RunStore with in-memory storage
type InMemoryRunStore struct {
	runs map[core.RunID]run.StoredRun
	mu   sync.RWMutex
}

func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[core.RunID]run.StoredRun)}
}

func (s *InMemoryRunStore) SaveRun(ctx context.Context, manifest run.Manifest, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode run payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[manifest.RunID] = run.StoredRun{Manifest: manifest, Payload: raw}
	return nil
}

func (s *InMemoryRunStore) GetRun(ctx context.Context, id core.RunID) (*run.StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.runs[id]
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("run %s", id))
	}
	return &stored, nil
}

func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	manifests := make([]run.Manifest, 0, len(s.runs))
	for _, stored := range s.runs {
		manifests = append(manifests, stored.Manifest)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].CreatedAt.Time().After(manifests[j].CreatedAt.Time())
	})
	if limit > 0 && len(manifests) > limit {
		manifests = manifests[:limit]
	}
	return manifests, nil
}

var _ ports.RunStore = (*InMemoryRunStore)(nil)
var _ ports.RNGPort = (*RNGAdapter)(nil)

// SyntheticTrialReader serves a generated table through the TrialReader
// port, used when no trial file is configured.
type SyntheticTrialReader struct {
	table *trial.Table
}

// NewSyntheticTrialReader generates a table once and serves it on every read.
func NewSyntheticTrialReader(seed int64, opts TrialTableOptions) *SyntheticTrialReader {
	return &SyntheticTrialReader{table: NewTrialTable(rand.New(rand.NewSource(seed)), opts)}
}

func (r *SyntheticTrialReader) ReadTable(ctx context.Context) (*trial.Table, error) {
	return r.table, nil
}

var _ ports.TrialReader = (*SyntheticTrialReader)(nil)

// TrialTableOptions controls the synthetic field-trial generator.
type TrialTableOptions struct {
	Plots      int
	BeforeYear int
	AfterYear  int
	Outcomes   []string
	Treatments []string
	Blocks     int
	Depth      string

	// Effect is added to after-year values of every non-first treatment,
	// scaled by the treatment's index. Zero gives a null table.
	Effect float64
	Noise  float64
}

// DefaultTrialTableOptions returns a small balanced design.
func DefaultTrialTableOptions() TrialTableOptions {
	return TrialTableOptions{
		Plots:      24,
		BeforeYear: 2015,
		AfterYear:  2019,
		Outcomes:   []string{"soc_pct", "ph", "bulk_density"},
		Treatments: []string{"control", "compost", "biochar"},
		Blocks:     4,
		Depth:      "0-30",
		Effect:     0,
		Noise:      1.0,
	}
}

// NewTrialTable generates a paired two-year trial table with the given
// design. Every plot appears in both years under the same treatment.
func NewTrialTable(rng *rand.Rand, opts TrialTableOptions) *trial.Table {
	records := make([]trial.Record, 0, 2*opts.Plots)

	for i := 0; i < opts.Plots; i++ {
		plot := fmt.Sprintf("p%02d", i+1)
		treatmentIdx := i % len(opts.Treatments)
		treatment := opts.Treatments[treatmentIdx]
		block := fmt.Sprintf("b%d", i%opts.Blocks+1)

		before := make(map[string]float64, len(opts.Outcomes))
		after := make(map[string]float64, len(opts.Outcomes))
		for _, key := range opts.Outcomes {
			base := 20 + rng.NormFloat64()*2
			before[key] = base
			after[key] = base + float64(treatmentIdx)*opts.Effect + rng.NormFloat64()*opts.Noise
		}

		records = append(records,
			trial.Record{Year: opts.BeforeYear, Plot: plot, Treatment: treatment, Block: block, Depth: opts.Depth, Outcomes: before},
			trial.Record{Year: opts.AfterYear, Plot: plot, Treatment: treatment, Block: block, Depth: opts.Depth, Outcomes: after},
		)
	}

	return &trial.Table{Records: records, OutcomeKeys: append([]string(nil), opts.Outcomes...)}
}

package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Analysis.Permutations != 5000 {
		t.Errorf("expected default permutations 5000, got %d", cfg.Analysis.Permutations)
	}
	if cfg.Analysis.Seed != 42 {
		t.Errorf("expected default seed 42, got %d", cfg.Analysis.Seed)
	}
	if cfg.Trial.SentinelDepth != "TOT" {
		t.Errorf("expected default sentinel depth TOT, got %s", cfg.Trial.SentinelDepth)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PERMUTATIONS", "1000")
	t.Setenv("SEED", "7")
	t.Setenv("THRESHOLD", "0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Analysis.Permutations != 1000 || cfg.Analysis.Seed != 7 || cfg.Analysis.Threshold != 0.1 {
		t.Errorf("overrides not applied: %+v", cfg.Analysis)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"non-positive permutations", "PERMUTATIONS", "0"},
		{"single replicate", "REPLICATES", "1"},
		{"non-positive threshold", "THRESHOLD", "-0.05"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected validation error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestLoadTrialYearValidation(t *testing.T) {
	t.Setenv("TRIAL_FILE", "trial.csv")
	t.Setenv("BEFORE_YEAR", "2019")
	t.Setenv("AFTER_YEAR", "2015")

	if _, err := Load(); err == nil {
		t.Error("expected error when BEFORE_YEAR does not precede AFTER_YEAR")
	}
}

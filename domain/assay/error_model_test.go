package assay

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestNewSymmetricErrorModel_ParameterValidation(t *testing.T) {
	tests := []struct {
		name      string
		low, high float64
		stdDev    float64
		wantErr   bool
	}{
		{"valid moderate spread", 0.5, 1.5, 0.1, false},
		{"valid near bound", 0.5, 1.5, 0.3, false},
		{"stddev beyond support bound", 0.5, 1.5, 1.0, true},
		{"stddev exactly at bound implies zero shape", 0.5, 1.5, 0.5, true},
		{"inverted bounds", 1.5, 0.5, 0.1, true},
		{"zero stddev", 0.5, 1.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSymmetricErrorModel(tt.low, tt.high, tt.stdDev)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for (%g,%g,%g), got none", tt.low, tt.high, tt.stdDev)
				}
				if !errors.Is(err, ErrInvalidParameter) {
					t.Errorf("expected ErrInvalidParameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSymmetricErrorModel_Unbiased(t *testing.T) {
	model, err := NewSymmetricErrorModel(0.5, 1.5, 0.2)
	if err != nil {
		t.Fatalf("model: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	trueValue := 3.2
	measurements, err := Simulate(model, []float64{trueValue}, 100000, rng)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	sum := 0.0
	for _, m := range measurements {
		sum += m
	}
	mean := sum / float64(len(measurements))

	if relBias := math.Abs(mean/trueValue - 1); relBias >= 0.01 {
		t.Errorf("symmetric simulator biased: mean=%.4f true=%.4f relative bias=%.4f", mean, trueValue, relBias)
	}
}

func TestSymmetricErrorModel_VarianceMatchesStdDev(t *testing.T) {
	model, err := NewSymmetricErrorModel(0.6, 1.4, 0.15)
	if err != nil {
		t.Fatalf("model: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	n := 200000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		d := model.Draw(rng)
		sum += d
		sumSq += d * d
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	if math.Abs(variance-model.Variance()) > 0.002 {
		t.Errorf("empirical variance %.5f differs from theoretical %.5f", variance, model.Variance())
	}
}

func TestSkewedErrorModel_MeanOneRegardlessOfSkew(t *testing.T) {
	tests := []struct {
		name        string
		alpha, beta float64
	}{
		{"right skewed", 1, 4},
		{"left skewed", 4, 1},
		{"mild skew", 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := NewSkewedErrorModel(tt.alpha, tt.beta)
			if err != nil {
				t.Fatalf("model: %v", err)
			}

			rng := rand.New(rand.NewSource(11))
			n := 200000
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += model.Draw(rng)
			}
			mean := sum / float64(n)

			if math.Abs(mean-1) >= 0.01 {
				t.Errorf("recentered mean should be 1, got %.4f", mean)
			}
		})
	}
}

func TestNewSkewedErrorModel_RejectsNonPositiveShapes(t *testing.T) {
	for _, params := range [][2]float64{{0, 1}, {1, 0}, {-2, 3}} {
		if _, err := NewSkewedErrorModel(params[0], params[1]); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("shapes (%g,%g): expected ErrInvalidParameter, got %v", params[0], params[1], err)
		}
	}
}

func TestSimulate_ShapeAndDeterminism(t *testing.T) {
	model, err := NewSymmetricErrorModel(0.8, 1.2, 0.05)
	if err != nil {
		t.Fatalf("model: %v", err)
	}

	trueValues := []float64{1, 2, 3}
	first, err := Simulate(model, trueValues, 4, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(first) != len(trueValues)*4 {
		t.Fatalf("expected %d measurements, got %d", len(trueValues)*4, len(first))
	}

	second, err := Simulate(model, trueValues, 4, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed produced different draw at index %d: %v vs %v", i, first[i], second[i])
		}
	}

	if _, err := Simulate(model, trueValues, 0, rand.New(rand.NewSource(1))); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero replicates: expected ErrInvalidParameter, got %v", err)
	}
}

func TestSimulateMatrix_Layout(t *testing.T) {
	model, err := NewSkewedErrorModel(2, 2)
	if err != nil {
		t.Fatalf("model: %v", err)
	}

	matrix, err := SimulateMatrix(model, []float64{1, 10}, 5, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("simulate matrix: %v", err)
	}
	if len(matrix) != 5 || len(matrix[0]) != 2 {
		t.Fatalf("expected 5x2 matrix, got %dx%d", len(matrix), len(matrix[0]))
	}

	// Column scale should follow the true value.
	for i := 0; i < 5; i++ {
		if matrix[i][1] < matrix[i][0] {
			t.Fatalf("row %d: column for true value 10 should dominate column for 1", i)
		}
	}
}

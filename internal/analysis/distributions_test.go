package analysis

import (
	"math"
	"testing"
)

func TestTTestPValue(t *testing.T) {
	d := NewDistributions()

	if p := d.TTestPValue(0, 10); math.Abs(p-1.0) > 1e-9 {
		t.Errorf("t=0 should give p=1, got %v", p)
	}

	pPos := d.TTestPValue(2.5, 20)
	pNeg := d.TTestPValue(-2.5, 20)
	if math.Abs(pPos-pNeg) > 1e-12 {
		t.Errorf("two-tailed p-value must be symmetric: %v vs %v", pPos, pNeg)
	}
	if pPos <= 0 || pPos >= 0.05 {
		t.Errorf("t=2.5 df=20 should be significant at 5%%, got %v", pPos)
	}

	if p := d.TTestPValue(2.5, 0); p != 1.0 {
		t.Errorf("invalid df should give p=1, got %v", p)
	}
}

func TestNormalQuantile(t *testing.T) {
	d := NewDistributions()

	if q := d.NormalQuantile(0.975); math.Abs(q-1.959964) > 1e-4 {
		t.Errorf("expected 97.5%% quantile near 1.96, got %v", q)
	}
	if q := d.NormalQuantile(0.5); math.Abs(q) > 1e-9 {
		t.Errorf("median of standard normal should be 0, got %v", q)
	}
}

func TestConfidenceIntervalMean(t *testing.T) {
	d := NewDistributions()

	lower, upper := d.ConfidenceIntervalMean(10.0, 2.0, 25, 0.95)
	if lower >= 10.0 || upper <= 10.0 {
		t.Errorf("interval must bracket the mean: [%v, %v]", lower, upper)
	}
	// t_{0.975,24} ~= 2.0639, se = 2/5 = 0.4, margin ~= 0.8256
	if math.Abs((upper-lower)/2-0.8256) > 0.001 {
		t.Errorf("unexpected margin: [%v, %v]", lower, upper)
	}

	lower, upper = d.ConfidenceIntervalMean(5.0, 1.0, 1, 0.95)
	if lower != 5.0 || upper != 5.0 {
		t.Errorf("single observation should collapse to the mean, got [%v, %v]", lower, upper)
	}
}

func TestOneWayANOVA(t *testing.T) {
	d := NewDistributions()

	values := []float64{1, 2, 3, 4, 5, 6}
	labels := []string{"a", "a", "a", "b", "b", "b"}

	res, err := d.OneWayANOVA(values, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// ssBetween = 13.5, ssWithin = 4, F = 13.5/1 / (4/4) = 13.5
	if math.Abs(res.FStatistic-13.5) > 1e-9 {
		t.Errorf("expected F=13.5, got %v", res.FStatistic)
	}
	if res.DFBetween != 1 || res.DFWithin != 4 {
		t.Errorf("expected df (1, 4), got (%d, %d)", res.DFBetween, res.DFWithin)
	}
	if res.PValue < 0.01 || res.PValue > 0.05 {
		t.Errorf("expected p in (0.01, 0.05), got %v", res.PValue)
	}
}

func TestOneWayANOVA_Rejections(t *testing.T) {
	d := NewDistributions()

	cases := []struct {
		name   string
		values []float64
		labels []string
	}{
		{"length mismatch", []float64{1, 2, 3}, []string{"a", "b"}},
		{"too few observations", []float64{1, 2}, []string{"a", "b"}},
		{"single group", []float64{1, 2, 3}, []string{"a", "a", "a"}},
		{"zero within variance", []float64{1, 1, 2, 2}, []string{"a", "a", "b", "b"}},
	}
	for _, tc := range cases {
		if _, err := d.OneWayANOVA(tc.values, tc.labels); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

package evaluation

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestSiteAbsoluteErrors(t *testing.T) {
	expected := map[string]float64{"a": -5.0, "b": -2.5}
	predicted := map[string]float64{"a": -4.0, "b": -3.0, "extra": -1.0}

	errs, err := SiteAbsoluteErrors(expected, predicted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 site errors, got %d", len(errs))
	}
	if !almostEqual(errs["a"], 1.0) {
		t.Errorf("expected 1.0 for a, got %f", errs["a"])
	}
	if !almostEqual(errs["b"], 0.5) {
		t.Errorf("expected 0.5 for b, got %f", errs["b"])
	}
}

func TestSiteAbsoluteErrors_MissingSite(t *testing.T) {
	_, err := SiteAbsoluteErrors(map[string]float64{"a": -1}, map[string]float64{"b": -1})
	if err == nil {
		t.Error("expected error for missing site")
	}
}

func TestMeanAbsoluteError(t *testing.T) {
	got := MeanAbsoluteError(map[string]float64{"a": 1.0, "b": 0.5, "c": 0.0})
	if !almostEqual(got, 0.5) {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestMeanAbsoluteError_Empty(t *testing.T) {
	got := MeanAbsoluteError(nil)
	if !almostEqual(got, 0.0) {
		t.Errorf("expected 0.0, got %f", got)
	}
}

func TestMaxAbsoluteError(t *testing.T) {
	got := MaxAbsoluteError(map[string]float64{"a": 0.2, "b": 1.7, "c": 0.9})
	if !almostEqual(got, 1.7) {
		t.Errorf("expected 1.7, got %f", got)
	}
}

func TestAgreementRate(t *testing.T) {
	tests := []struct {
		matches, total int
		want           float64
	}{
		{3, 4, 0.75},
		{0, 5, 0.0},
		{5, 5, 1.0},
		{0, 0, 0.0},
	}
	for _, tt := range tests {
		got := AgreementRate(tt.matches, tt.total)
		if !almostEqual(got, tt.want) {
			t.Errorf("AgreementRate(%d, %d) = %f, want %f", tt.matches, tt.total, got, tt.want)
		}
	}
}

package evaluation

import (
	"fmt"
	"math"
)

// SiteAbsoluteErrors returns |expected - predicted| per site. Every expected site must be predicted.
func SiteAbsoluteErrors(expected, predicted map[string]float64) (map[string]float64, error) {
	errs := make(map[string]float64, len(expected))
	for site, want := range expected {
		got, ok := predicted[site]
		if !ok {
			return nil, fmt.Errorf("site %q missing from prediction", site)
		}
		errs[site] = math.Abs(want - got)
	}
	return errs, nil
}

// MeanAbsoluteError averages the per-site errors. Returns 0.0 for an empty map.
func MeanAbsoluteError(siteErrors map[string]float64) float64 {
	if len(siteErrors) == 0 {
		return 0.0
	}
	var sum float64
	for _, e := range siteErrors {
		sum += e
	}
	return sum / float64(len(siteErrors))
}

// MaxAbsoluteError returns the largest per-site error.
func MaxAbsoluteError(siteErrors map[string]float64) float64 {
	var max float64
	for _, e := range siteErrors {
		if e > max {
			max = e
		}
	}
	return max
}

// AgreementRate is the fraction of matches out of total. Returns 0.0 if total is zero.
func AgreementRate(matches, total int) float64 {
	if total <= 0 {
		return 0.0
	}
	return float64(matches) / float64(total)
}

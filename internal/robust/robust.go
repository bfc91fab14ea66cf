// Package robust provides outlier-resistant statistics: median, MAD,
// robust z-scores and coefficient of variation. Every detection
// component builds on these instead of raw mean/variance.
package robust

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// MAD-to-stddev scale for normally distributed data.
const madScale = 1.4826

// CI95Z is the two-sided 95% normal quantile, used for uncertainty
// intervals.
var CI95Z = distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.975)

// Tiers are the cumulative robust z-score bounds for outlier flagging:
// anything above Mild is flagged, with severity set by the highest
// bound it also exceeds. Values at a bound are never flagged by it.
type Tiers struct {
	Mild     float64
	Moderate float64
	Severe   float64
}

// DefaultTiers returns the conventional laboratory bounds.
func DefaultTiers() Tiers {
	return Tiers{Mild: 1.96, Moderate: 2.5, Severe: 3.5}
}

// TiersOf builds tiers from configured bounds, keeping the default for
// any non-positive value.
func TiersOf(mild, moderate, severe float64) Tiers {
	t := DefaultTiers()
	if mild > 0 {
		t.Mild = mild
	}
	if moderate > 0 {
		t.Moderate = moderate
	}
	if severe > 0 {
		t.Severe = severe
	}
	return t
}

// Severity labels an outlier tier.
type Severity string

const (
	Mild     Severity = "mild"
	Moderate Severity = "moderate"
	Severe   Severity = "severe"
)

// Outlier is one flagged value.
type Outlier struct {
	Index    int
	Value    float64
	ZScore   float64
	Severity Severity
}

// Median returns the median, or NaN for empty input.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	m, err := stats.Median(data)
	if err != nil {
		return math.NaN()
	}
	return m
}

// MAD returns the median absolute deviation about the median.
func MAD(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	med := Median(data)
	devs := make([]float64, len(data))
	for i, x := range data {
		devs[i] = math.Abs(x - med)
	}
	return Median(devs)
}

// StdDev approximates a normal standard deviation from the MAD.
func StdDev(data []float64) float64 {
	return madScale * MAD(data)
}

// ZScore is the robust z of x against a median and robust std dev.
// A degenerate (zero or non-finite) spread yields z = 0: identical
// values are never outliers.
func ZScore(x, median, robustStd float64) float64 {
	if robustStd <= 0 || math.IsNaN(robustStd) || math.IsInf(robustStd, 0) {
		return 0
	}
	return math.Abs(x-median) / robustStd
}

// SeverityOf tiers a robust z-score; ok is false at or below the mild
// bound.
func (t Tiers) SeverityOf(z float64) (Severity, bool) {
	switch {
	case z > t.Severe:
		return Severe, true
	case z > t.Moderate:
		return Moderate, true
	case z > t.Mild:
		return Mild, true
	default:
		return "", false
	}
}

// Outliers flags every value whose robust z exceeds the mild bound of
// the given tiers.
func Outliers(data []float64, tiers Tiers) []Outlier {
	if len(data) < 2 {
		return nil
	}
	med := Median(data)
	rsd := StdDev(data)

	var out []Outlier
	for i, x := range data {
		z := ZScore(x, med, rsd)
		if sev, ok := tiers.SeverityOf(z); ok {
			out = append(out, Outlier{Index: i, Value: x, ZScore: z, Severity: sev})
		}
	}
	return out
}

// CV returns the coefficient of variation (population std over |mean|),
// or NaN when undefined. A zero mean maps to the maximal CV of 1 so
// score formulas of the shape 1-CV stay bounded.
func CV(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return math.NaN()
	}
	sd, err := stats.StandardDeviation(data)
	if err != nil {
		return math.NaN()
	}
	if mean == 0 {
		return 1
	}
	return sd / math.Abs(mean)
}

// Mean is a NaN-safe wrapper over the descriptive mean.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	m, err := stats.Mean(data)
	if err != nil {
		return math.NaN()
	}
	return m
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package valscience

import (
	"fmt"
	"math"
	"sort"

	"dosescan/domain/valscore"
	"dosescan/internal/robust"
)

// Concentration factor weights (sum to 1).
const (
	wUnitConsistency = 0.15
	wRange           = 0.25
	wBiological      = 0.20
	wPatternQuality  = 0.25
	wPower           = 0.15
)

// validateConcentrations combines five weighted factors into one score.
func (v *Validator) validateConcentrations(concentrations []float64, opts Options) valscore.ConcentrationValidation {
	oom := orderOfMagnitude(concentrations)
	assay := v.inferAssayType(concentrations, opts.AssayHint)
	category, rangeScore, coverage := v.rangeAppropriateness(concentrations, oom, assay)
	power := v.powerAnalysis(len(concentrations), oom)

	factors := []valscore.Factor{
		{Name: "unit_consistency", Weight: wUnitConsistency, Score: unitConsistencyScore(opts.Units)},
		{Name: "range_appropriateness", Weight: wRange, Score: rangeScore, Detail: string(category)},
		{Name: "biological_relevance", Weight: wBiological, Score: v.biologicalPlausibility(concentrations, oom)},
		{Name: "pattern_quality", Weight: wPatternQuality, Score: quickConsistency(concentrations)},
		{Name: "statistical_power", Weight: wPower, Score: power.EstimatedPower,
			Detail: fmt.Sprintf("%d points, %d recommended", power.SampleSize, power.RecommendedPoints)},
	}

	confidence := robust.Clamp(float64(len(concentrations))/float64(v.cfg.RecommendedPoints), 0, 1)

	return valscore.ConcentrationValidation{
		ValidationScore: valscore.Scored(confidence, factors...),
		RangeCategory:   category,
		Coverage:        coverage,
		AssayType:       assay,
		Power:           power,
	}
}

func unitConsistencyScore(units []string) float64 {
	distinct := make(map[string]bool)
	for _, u := range units {
		if u != "" {
			distinct[u] = true
		}
	}
	switch {
	case len(distinct) <= 1:
		return 1.0
	case len(distinct) == 2:
		return 0.7
	default:
		return 0.4
	}
}

// rangeAppropriateness classifies the span and scores it, and computes
// coverage of the expected assay window on the log scale.
func (v *Validator) rangeAppropriateness(concentrations []float64, oom float64, assay valscore.AssayType) (valscore.RangeCategory, float64, float64) {
	min, max := minMax(concentrations)
	window := v.cfg.AssayWindows[string(assay)]
	coverage := logCoverage(min, max, window.MinNM, window.MaxNM)

	switch {
	case oom < 2:
		return valscore.RangeTooNarrow, 0.2, coverage
	case oom > 6:
		if oom <= 8 {
			return valscore.RangeTooWide, 0.6, coverage
		}
		return valscore.RangeTooWide, 0.2, coverage
	case window.MaxNM > 0 && (min > window.MaxNM*10 || max < window.MinNM/10):
		return valscore.RangeUnrealistic, 0.1, coverage
	default:
		return valscore.RangeAppropriate, 1.0, coverage
	}
}

// logCoverage is the overlap between the observed and expected ranges,
// normalized by the expected log span.
func logCoverage(obsMin, obsMax, expMin, expMax float64) float64 {
	if obsMin <= 0 || obsMax <= 0 || expMin <= 0 || expMax <= expMin {
		return 0
	}
	lo := math.Max(math.Log10(obsMin), math.Log10(expMin))
	hi := math.Min(math.Log10(obsMax), math.Log10(expMax))
	if hi <= lo {
		return 0
	}
	return robust.Clamp((hi-lo)/(math.Log10(expMax)-math.Log10(expMin)), 0, 1)
}

// inferAssayType scores each candidate assay against the median
// concentration, with an explicit caller hint dominating.
func (v *Validator) inferAssayType(concentrations []float64, hint valscore.AssayType) valscore.AssayType {
	median := robust.Median(concentrations)

	candidates := []valscore.AssayType{
		valscore.AssayBinding, valscore.AssayFunctional, valscore.AssayCytotoxicity,
		valscore.AssayEnzymatic, valscore.AssayReporter,
	}

	best := valscore.AssayGeneral
	bestScore := 0.45 // General wins unless a candidate is a clear fit
	for _, cand := range candidates {
		window, ok := v.cfg.AssayWindows[string(cand)]
		if !ok {
			continue
		}
		score := windowFit(median, window.MinNM, window.MaxNM)
		if cand == hint {
			score += 2
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

// windowFit is 1 inside the window and decays with log-distance outside.
func windowFit(value, lo, hi float64) float64 {
	if value <= 0 || lo <= 0 || hi <= lo {
		return 0
	}
	if value >= lo && value <= hi {
		return 1
	}
	var dist float64
	if value < lo {
		dist = math.Log10(lo / value)
	} else {
		dist = math.Log10(value / hi)
	}
	return 1 / (1 + dist)
}

// biologicalPlausibility rewards a 2-6 order-of-magnitude span and
// penalizes values outside the absolute plausibility window.
func (v *Validator) biologicalPlausibility(concentrations []float64, oom float64) float64 {
	score := 0.5
	if oom >= 2 && oom <= 6 {
		score += 0.3
	}
	if oom < 1 {
		score -= 0.2
	}
	for _, c := range concentrations {
		if c < v.cfg.PlausibleMinNM || c > v.cfg.PlausibleMaxNM {
			score -= 0.3
			break
		}
	}
	return robust.Clamp(score, 0, 1)
}

// quickConsistency is the validator's own pattern-quality estimate,
// independent of the dilution analyzer.
func quickConsistency(concentrations []float64) float64 {
	if len(concentrations) < 3 {
		return 0
	}
	sorted := append([]float64(nil), concentrations...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var ratios []float64
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i+1] <= 0 {
			continue
		}
		r := sorted[i] / sorted[i+1]
		if r > 0 && !math.IsNaN(r) && !math.IsInf(r, 0) {
			ratios = append(ratios, r)
		}
	}
	if len(ratios) < 2 {
		return 0
	}
	cv := robust.CV(ratios)
	if math.IsNaN(cv) {
		return 0
	}
	return math.Max(0, 1-cv)
}

// powerAnalysis scales estimated power piecewise against the minimum
// and recommended point counts, then adjusts for range width.
func (v *Validator) powerAnalysis(n int, oom float64) valscore.PowerAnalysis {
	minPts := v.cfg.MinPoints
	recPts := v.cfg.RecommendedPoints

	var power float64
	switch {
	case n < 3:
		power = 0.1
	case n < minPts:
		power = 0.3 + 0.1*float64(n-2)
	case n == minPts:
		power = 0.6
	case n < recPts:
		power = 0.6 + 0.25*float64(n-minPts)/float64(recPts-minPts)
	default:
		power = 0.85 + 0.01*float64(n-recPts)
	}

	if oom < 2 {
		power *= 0.7
	} else if oom > 4 {
		power *= 1.1
	}
	power = robust.Clamp(power, 0, 0.99)

	return valscore.PowerAnalysis{
		SampleSize:         n,
		MinimumPoints:      minPts,
		RecommendedPoints:  recPts,
		EstimatedPower:     power,
		AdequateForFitting: power >= 0.80,
	}
}

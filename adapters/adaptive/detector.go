// Package adaptive provides the in-process default for the adaptive
// pattern detector collaborator. Hosts with their own detector inject
// it through ports.AdaptiveDetector; this one ranks candidate dilution
// factors by how well they explain the observed ratio sequence.
package adaptive

import (
	"context"
	"math"
	"sort"

	"dosescan/domain/core"
	"dosescan/domain/dilution"
	"dosescan/internal/robust"
)

// Detector is the default ratio-clustering adaptive detector.
type Detector struct {
	cfg core.DetectionConfig
}

// NewDetector creates the default detector.
func NewDetector(cfg core.DetectionConfig) *Detector {
	return &Detector{cfg: cfg}
}

// DetectPatterns ranks pattern candidates for a concentration sequence.
// It honors ctx cancellation and returns an empty list, never an error,
// for series it cannot read.
func (d *Detector) DetectPatterns(ctx context.Context, concentrations []float64) ([]dilution.PatternCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(concentrations))
	for _, v := range concentrations {
		if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	if len(values) < 3 {
		return nil, nil
	}

	sorted := append([]float64(nil), values...)
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
		return nil, nil
	}

	median := robust.Median(ratios)
	cv := robust.CV(ratios)
	if math.IsNaN(cv) {
		cv = 1
	}
	stability := math.Max(0, 1-cv)

	var candidates []dilution.PatternCandidate
	for _, f := range d.cfg.Factors() {
		rel := math.Abs(median-f) / f
		closeness := math.Max(0, 1-rel/0.5)
		conf := closeness * stability
		if conf <= 0.05 {
			continue
		}
		candidates = append(candidates, dilution.PatternCandidate{
			Type:       typeForFactor(f),
			Confidence: robust.Clamp(conf, 0, 1),
			Factor:     f,
			Params:     map[string]float64{"median_ratio": median, "relative_error": rel},
		})
	}

	// A consistent series far from every canonical factor is still a
	// usable custom pattern.
	if stability > 0.7 && len(candidates) == 0 {
		candidates = append(candidates, dilution.PatternCandidate{
			Type:       dilution.PatternCustom,
			Confidence: robust.Clamp(stability*0.8, 0, 1),
			Factor:     median,
			Params:     map[string]float64{"median_ratio": median},
		})
	}

	if stability < 0.3 {
		candidates = append(candidates, dilution.PatternCandidate{
			Type:       dilution.PatternIrregular,
			Confidence: robust.Clamp(1-stability, 0, 1) * 0.6,
			Params:     map[string]float64{"ratio_cv": cv},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Confidence > candidates[j].Confidence })
	return candidates, nil
}

func typeForFactor(f float64) dilution.PatternType {
	switch {
	case math.Abs(f-10) < 1e-9:
		return dilution.PatternLogScale
	case math.Abs(f-math.Sqrt(10)) < 1e-9:
		return dilution.PatternHalfLog
	default:
		return dilution.PatternSerial
	}
}

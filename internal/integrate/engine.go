// Package integrate fuses the structural, pattern, validation and
// adaptive analyses into consensus metrics, a calibrated overall
// confidence with an uncertainty interval, and ranked recommendations.
package integrate

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"dosescan/domain/core"
	"dosescan/domain/dilution"
	"dosescan/domain/integrate"
	"dosescan/domain/structure"
	"dosescan/domain/valscore"
	"dosescan/internal/robust"
)

// neutralAgreement is used when one side of a pairwise comparison is
// unavailable; absence degrades consensus toward indifference, not zero.
const neutralAgreement = 0.5

// Confidence fusion weights.
const (
	wStructural = 0.30
	wAdaptive   = 0.25
	wValidation = 0.25
	wConsensus  = 0.20
)

// Engine computes the integration layer.
type Engine struct {
	cfg core.DetectionConfig
}

// NewEngine creates an integration engine.
func NewEngine(cfg core.DetectionConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Integrate fuses the independent analyses. All inputs may be canonical
// empty values; the output is always fully populated.
func (e *Engine) Integrate(
	structural structure.StructuralAnalysis,
	pattern dilution.DilutionPattern,
	validation valscore.ValidationResult,
	adaptive []dilution.PatternCandidate,
) (integrate.IntegrationMetrics, integrate.RobustConfidence, []integrate.Recommendation) {

	candidates := append([]dilution.PatternCandidate(nil), adaptive...)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Confidence > candidates[j].Confidence })

	agreement := e.methodAgreement(structural, pattern, validation, candidates)
	consensus := agreement.Mean()

	metrics := integrate.IntegrationMetrics{
		Consensus:       consensus,
		CrossValidation: e.crossValidation(pattern, candidates),
		Robustness:      e.robustness(pattern, validation, candidates),
		Reliability:     e.reliability(consensus, pattern, validation),
		Agreement:       agreement,
	}

	confidence := e.fuseConfidence(structural, validation, candidates, consensus)
	recommendations := e.recommend(structural, validation, candidates, metrics)

	return metrics, confidence, recommendations
}

func bestAdaptive(candidates []dilution.PatternCandidate) (dilution.PatternCandidate, bool) {
	if len(candidates) == 0 {
		return dilution.PatternCandidate{}, false
	}
	return candidates[0], true
}

// methodAgreement compares each pair of detection methods on confidence
// alone; similar confidence means the methods tell the same story.
func (e *Engine) methodAgreement(
	structural structure.StructuralAnalysis,
	pattern dilution.DilutionPattern,
	validation valscore.ValidationResult,
	candidates []dilution.PatternCandidate,
) integrate.MethodAgreement {

	agreement := integrate.MethodAgreement{
		StructuralVsPattern:    neutralAgreement,
		PatternVsValidation:    neutralAgreement,
		StructuralVsValidation: neutralAgreement,
	}

	best, hasAdaptive := bestAdaptive(candidates)

	if structural.Valid && hasAdaptive {
		agreement.StructuralVsPattern = 1 - math.Abs(structural.Confidence-best.Confidence)
	}
	if patternQuality, ok := concentrationFactor(validation, "pattern_quality"); ok && pattern.Type != dilution.PatternUnknown {
		agreement.PatternVsValidation = 1 - math.Abs(pattern.Confidence-patternQuality)
	}
	if structural.Valid && validation.Valid {
		agreement.StructuralVsValidation = 1 - math.Abs(structural.Confidence-validation.Overall.Confidence)
	}
	return agreement
}

func concentrationFactor(validation valscore.ValidationResult, name string) (float64, bool) {
	for _, f := range validation.Concentration.Factors {
		if f.Name == name {
			return f.Score, true
		}
	}
	return 0, false
}

// crossValidation rewards stable adaptive candidate confidences and
// type agreement between the scientific and adaptive detectors.
func (e *Engine) crossValidation(pattern dilution.DilutionPattern, candidates []dilution.PatternCandidate) float64 {
	score := 0.70

	if len(candidates) >= 2 {
		top := candidates
		if len(top) > 3 {
			top = top[:3]
		}
		confs := make([]float64, len(top))
		for i, c := range top {
			confs[i] = c.Confidence
		}
		cv := robust.CV(confs)
		if math.IsNaN(cv) {
			cv = 1
		}
		score += 0.20 * math.Max(0, 1-cv)
	}

	if best, ok := bestAdaptive(candidates); ok && best.Type == pattern.Type {
		score += 0.10
	}
	return math.Min(score, 1.0)
}

// robustness folds pattern stability, validation level and adaptive
// candidate coherence into one stability score.
func (e *Engine) robustness(pattern dilution.DilutionPattern, validation valscore.ValidationResult, candidates []dilution.PatternCandidate) float64 {
	score := 0.5
	score += 0.3 * pattern.Stats.ConsistencyScore

	switch validation.Overall.Level {
	case valscore.LevelExcellent:
		score += 0.3
	case valscore.LevelGood:
		score += 0.2
	case valscore.LevelAcceptable:
		score += 0.1
	case valscore.LevelPoor:
		score -= 0.05
	default:
		score -= 0.1
	}

	if len(candidates) >= 2 && candidates[0].Type == candidates[1].Type {
		score += 0.1
	}
	return robust.Clamp(score, 0, 1)
}

// reliability adjusts consensus by how far validation quality and
// pattern confidence sit from indifference.
func (e *Engine) reliability(consensus float64, pattern dilution.DilutionPattern, validation valscore.ValidationResult) float64 {
	adjusted := consensus
	adjusted += (validation.Overall.Score - 0.5) * 0.2 // ±0.1 at the extremes
	adjusted += (pattern.Confidence - 0.5) * 0.1       // ±0.05
	return robust.Clamp(adjusted, 0, 1)
}

// fuseConfidence computes the weighted overall confidence and its
// normal-theory uncertainty interval over the four components.
func (e *Engine) fuseConfidence(
	structural structure.StructuralAnalysis,
	validation valscore.ValidationResult,
	candidates []dilution.PatternCandidate,
	consensus float64,
) integrate.RobustConfidence {

	adaptiveConf := 0.0
	if best, ok := bestAdaptive(candidates); ok {
		adaptiveConf = best.Confidence
	}

	components := []float64{structural.Confidence, adaptiveConf, validation.Overall.Confidence, consensus}
	overall := wStructural*structural.Confidence + wAdaptive*adaptiveConf +
		wValidation*validation.Overall.Confidence + wConsensus*consensus

	mean, _ := stats.Mean(components)
	sd, _ := stats.StandardDeviation(components)
	margin := robust.CI95Z * sd / math.Sqrt(float64(len(components)))

	interval := integrate.UncertaintyInterval{
		Lower:  robust.Clamp(mean-margin, 0, 1),
		Upper:  robust.Clamp(mean+margin, 0, 1),
		Method: "normal-approximation",
	}
	interval.Width = interval.Upper - interval.Lower

	return integrate.RobustConfidence{
		Overall:    robust.Clamp(overall, 0, 1),
		Structural: structural.Confidence,
		Pattern:    adaptiveConf,
		Validation: validation.Overall.Confidence,
		Consensus:  consensus,
		Interval:   interval,
	}
}

// recommend generates rule-based, priority-ranked advice. Overlapping
// recommendations are allowed; callers see the full list.
func (e *Engine) recommend(
	structural structure.StructuralAnalysis,
	validation valscore.ValidationResult,
	candidates []dilution.PatternCandidate,
	metrics integrate.IntegrationMetrics,
) []integrate.Recommendation {

	var recs []integrate.Recommendation

	if !structural.Valid {
		recs = append(recs, integrate.Recommendation{
			Type:     integrate.RecCritical,
			Priority: 10,
			Category: "input",
			Message:  fmt.Sprintf("Input grid is not analyzable: %s. Provide a rectangular grid with at least 3 concentration points.", structural.Diagnostic),
			Impact:   integrate.Impact{Confidence: 0.9, Accuracy: 0.9, Reliability: 0.9},
			Guidance: integrate.Guidance{
				Complexity: "trivial",
				Steps:      []string{"Check for empty or ragged rows", "Re-export the source sheet", "Re-run the analysis"},
			},
		})
	}

	// An unanalyzable grid already carries the input critical; the
	// validation verdict is a consequence of the same defect, so only
	// one critical fires per failure.
	if structural.Valid && valscore.Rank(validation.Overall.Level) <= valscore.Rank(valscore.LevelPoor) {
		recs = append(recs, integrate.Recommendation{
			Type:     integrate.RecCritical,
			Priority: 9,
			Category: "validation",
			Message:  fmt.Sprintf("Scientific validation scored %s; results should not be used for curve fitting without correction.", validation.Overall.Level),
			Impact:   integrate.Impact{Confidence: 0.7, Accuracy: 0.8, Reliability: 0.7},
			Guidance: integrate.Guidance{
				Complexity: "moderate",
				Steps:      []string{"Review the flagged validation factors", "Verify the concentration column selection", "Correct units or remove invalid rows"},
			},
		})
	}

	best, hasAdaptive := bestAdaptive(candidates)
	if !hasAdaptive || best.Confidence < 0.5 {
		recs = append(recs, integrate.Recommendation{
			Type:     integrate.RecImportant,
			Priority: 7,
			Category: "pattern",
			Message:  "No confident dilution pattern was detected; the series may be irregular or the concentration column misidentified.",
			Impact:   integrate.Impact{Confidence: 0.5, Accuracy: 0.6, Reliability: 0.4},
			Guidance: integrate.Guidance{
				Complexity: "moderate",
				Steps:      []string{"Confirm the concentration column", "Check for transcription errors in the series", "Consider re-plating with a standard serial dilution"},
			},
		})
	}

	if metrics.Consensus < 0.6 {
		recs = append(recs, integrate.Recommendation{
			Type:     integrate.RecSuggestion,
			Priority: 4,
			Category: "consensus",
			Message:  "Detection methods disagree; inspect the structural mapping and pattern statistics before trusting the combined confidence.",
			Impact:   integrate.Impact{Confidence: 0.3, Accuracy: 0.3, Reliability: 0.4},
			Guidance: integrate.Guidance{
				Complexity: "trivial",
				Steps:      []string{"Compare the structural and adaptive confidences", "Review ratio outliers"},
			},
		})
	}

	if valscore.Rank(validation.Overall.Level) >= valscore.Rank(valscore.LevelGood) &&
		!validation.Concentration.Power.AdequateForFitting {
		recs = append(recs, integrate.Recommendation{
			Type:     integrate.RecOptimization,
			Priority: 2,
			Category: "design",
			Message: fmt.Sprintf("Data quality is %s but only %d concentration points were found; %d or more improve fitting power.",
				validation.Overall.Level, validation.Concentration.Power.SampleSize, validation.Concentration.Power.RecommendedPoints),
			Impact: integrate.Impact{Confidence: 0.1, Accuracy: 0.2, Reliability: 0.2},
			Guidance: integrate.Guidance{
				Complexity: "involved",
				Steps:      []string{"Extend the dilution series", "Add replicate columns"},
			},
		})
	}

	integrate.SortRecommendations(recs)
	return recs
}

package integrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosescan/domain/core"
	"dosescan/domain/dilution"
	domint "dosescan/domain/integrate"
	"dosescan/domain/structure"
	"dosescan/domain/valscore"
)

func newTestEngine() *Engine {
	return NewEngine(core.DefaultDetectionConfig())
}

func TestIntegrate_AllInputsEmpty(t *testing.T) {
	metrics, confidence, recs := newTestEngine().Integrate(
		structure.Invalid("empty grid"),
		dilution.EmptyPattern(),
		valscore.Unacceptable("no concentration data"),
		nil,
	)

	// Missing comparisons read as indifference, not failure.
	assert.InDelta(t, 0.5, metrics.Agreement.StructuralVsPattern, 1e-9)
	assert.InDelta(t, 0.5, metrics.Agreement.PatternVsValidation, 1e-9)
	assert.InDelta(t, 0.5, metrics.Agreement.StructuralVsValidation, 1e-9)
	assert.InDelta(t, 0.5, metrics.Consensus, 1e-9)

	assert.Zero(t, confidence.Structural)
	assert.Zero(t, confidence.Pattern)
	assert.GreaterOrEqual(t, confidence.Interval.Lower, 0.0)
	assert.LessOrEqual(t, confidence.Interval.Upper, 1.0)

	// The input critical subsumes the validation one; a single critical
	// fires for an unanalyzable grid.
	require.Len(t, recs, 3)
	priorities := make([]int, len(recs))
	for i, r := range recs {
		priorities[i] = r.Priority
	}
	assert.Equal(t, []int{10, 7, 4}, priorities)
	assert.Equal(t, domint.RecCritical, recs[0].Type)
	assert.Equal(t, domint.RecImportant, recs[1].Type)
	assert.Equal(t, domint.RecSuggestion, recs[2].Type)
}

func TestIntegrate_PoorValidationOnValidGrid(t *testing.T) {
	structural := structure.StructuralAnalysis{Valid: true, Confidence: 0.8}
	_, _, recs := newTestEngine().Integrate(
		structural,
		dilution.EmptyPattern(),
		valscore.Unacceptable("units could not be reconciled"),
		nil,
	)

	// With the grid itself analyzable, the validation verdict is the
	// one critical.
	require.NotEmpty(t, recs)
	assert.Equal(t, domint.RecCritical, recs[0].Type)
	assert.Equal(t, 9, recs[0].Priority)
	assert.Equal(t, "validation", recs[0].Category)

	criticals := 0
	for _, r := range recs {
		if r.Type == domint.RecCritical {
			criticals++
		}
	}
	assert.Equal(t, 1, criticals)
}

func TestFuseConfidence_WeightedCombination(t *testing.T) {
	e := newTestEngine()
	structural := structure.StructuralAnalysis{Valid: true, Confidence: 0.8}
	validation := valscore.ValidationResult{
		Valid:   true,
		Overall: valscore.ValidationScore{Score: 0.7, Level: valscore.LevelAcceptable, Confidence: 0.6},
	}
	candidates := []dilution.PatternCandidate{{Type: dilution.PatternLogScale, Confidence: 0.9}}

	confidence := e.fuseConfidence(structural, validation, candidates, 0.7)

	assert.InDelta(t, 0.755, confidence.Overall, 1e-9)
	assert.Equal(t, 0.8, confidence.Structural)
	assert.Equal(t, 0.9, confidence.Pattern)
	assert.Equal(t, 0.6, confidence.Validation)
	assert.Equal(t, 0.7, confidence.Consensus)

	interval := confidence.Interval
	assert.Equal(t, "normal-approximation", interval.Method)
	assert.LessOrEqual(t, interval.Lower, interval.Upper)
	assert.InDelta(t, interval.Upper-interval.Lower, interval.Width, 1e-12)
}

func TestCrossValidation_StableAgreeingCandidates(t *testing.T) {
	e := newTestEngine()
	pattern := dilution.DilutionPattern{Type: dilution.PatternLogScale}
	candidates := []dilution.PatternCandidate{
		{Type: dilution.PatternLogScale, Confidence: 0.9},
		{Type: dilution.PatternLogScale, Confidence: 0.8},
	}

	score := e.crossValidation(pattern, candidates)
	assert.InDelta(t, 0.9882, score, 0.001)

	// A lone disagreeing candidate earns neither bonus.
	disagreeing := []dilution.PatternCandidate{{Type: dilution.PatternSerial, Confidence: 0.9}}
	assert.InDelta(t, 0.70, e.crossValidation(pattern, disagreeing), 1e-9)
}

func TestRobustness_SaturatesAtOne(t *testing.T) {
	e := newTestEngine()
	pattern := dilution.DilutionPattern{
		Type:  dilution.PatternLogScale,
		Stats: dilution.RatioStats{ConsistencyScore: 1.0},
	}
	validation := valscore.ValidationResult{
		Valid:   true,
		Overall: valscore.ValidationScore{Score: 0.95, Level: valscore.LevelExcellent},
	}
	candidates := []dilution.PatternCandidate{
		{Type: dilution.PatternLogScale, Confidence: 0.9},
		{Type: dilution.PatternLogScale, Confidence: 0.85},
	}

	assert.InDelta(t, 1.0, e.robustness(pattern, validation, candidates), 1e-9)
}

func TestReliability_AdjustsAroundConsensus(t *testing.T) {
	e := newTestEngine()

	strong := valscore.ValidationResult{Overall: valscore.ValidationScore{Score: 1.0}}
	weak := valscore.ValidationResult{Overall: valscore.ValidationScore{Score: 0.0}}
	pattern := dilution.DilutionPattern{Confidence: 0.5}

	assert.InDelta(t, 0.8, e.reliability(0.7, pattern, strong), 1e-9)
	assert.InDelta(t, 0.6, e.reliability(0.7, pattern, weak), 1e-9)
}

func TestIntegrate_CleanRunProducesNoRecommendations(t *testing.T) {
	structural := structure.StructuralAnalysis{Valid: true, Confidence: 0.95}
	pattern := dilution.DilutionPattern{
		Type:       dilution.PatternLogScale,
		Confidence: 0.95,
		Stats:      dilution.RatioStats{ConsistencyScore: 1.0},
	}
	validation := valscore.ValidationResult{
		Valid: true,
		Concentration: valscore.ConcentrationValidation{
			ValidationScore: valscore.ValidationScore{
				Score: 0.95, Level: valscore.LevelExcellent,
				Factors: []valscore.Factor{{Name: "pattern_quality", Weight: 0.25, Score: 1.0}},
			},
			Power: valscore.PowerAnalysis{SampleSize: 8, RecommendedPoints: 8, EstimatedPower: 0.85, AdequateForFitting: true},
		},
		Overall: valscore.ValidationScore{Score: 0.95, Level: valscore.LevelExcellent, Confidence: 0.95},
	}
	candidates := []dilution.PatternCandidate{{Type: dilution.PatternLogScale, Confidence: 0.95}}

	metrics, confidence, recs := newTestEngine().Integrate(structural, pattern, validation, candidates)

	assert.Empty(t, recs)
	assert.Greater(t, metrics.Consensus, 0.9)
	assert.Greater(t, confidence.Overall, 0.9)
}

func TestSortRecommendations_StableDescending(t *testing.T) {
	recs := []domint.Recommendation{
		{Priority: 4, Category: "first-low"},
		{Priority: 9, Category: "high"},
		{Priority: 4, Category: "second-low"},
	}
	domint.SortRecommendations(recs)

	assert.Equal(t, 9, recs[0].Priority)
	assert.Equal(t, "first-low", recs[1].Category)
	assert.Equal(t, "second-low", recs[2].Category)
}

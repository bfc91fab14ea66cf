package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosescan/adapters/adaptive"
	"dosescan/adapters/units"
	"dosescan/domain/core"
	domdil "dosescan/domain/dilution"
	domint "dosescan/domain/integrate"
	"dosescan/domain/structure"
	"dosescan/domain/valscore"
)

func newTestService() *AnalysisService {
	cfg := core.DefaultDetectionConfig()
	return NewAnalysisService(cfg, units.NewParser(), adaptive.NewDetector(cfg))
}

func cleanLogGrid() core.Grid {
	return core.GridFromStrings([][]string{
		{"Concentration (nM)", "Signal A", "Signal B"},
		{"100000", "100", "98"},
		{"10000", "95", "96"},
		{"1000", "80", "82"},
		{"100", "50", "52"},
		{"10", "20", "22"},
		{"1", "8", "9"},
		{"0.1", "2", "3"},
	})
}

func TestAnalyze_FullPipeline(t *testing.T) {
	result := newTestService().Analyze(context.Background(), cleanLogGrid())

	assert.NotEmpty(t, result.ID)
	assert.False(t, result.ComputedAt.IsZero())
	assert.Equal(t, "nM", result.Unit)

	require.True(t, result.Structural.Valid)
	assert.Equal(t, structure.LayoutStandard, result.Structural.Layout)
	assert.Equal(t, 0, result.Structural.Columns.ConcentrationColumn)
	assert.Equal(t, []int{1, 2}, result.Structural.Columns.ResponseColumns)

	assert.Equal(t, domdil.PatternLogScale, result.Pattern.Type)
	assert.InDelta(t, 10.0, result.Pattern.Factor, 1e-9)
	assert.Equal(t, 7, result.Pattern.PointCount)

	assert.Equal(t, valscore.LevelExcellent, result.Validation.Overall.Level)
	assert.True(t, result.Validation.DoseResponse.Monotonic)

	require.NotEmpty(t, result.Adaptive)
	assert.Equal(t, domdil.PatternLogScale, result.Adaptive[0].Type)

	assert.Greater(t, result.Confidence.Overall, 0.9)
	assert.Empty(t, result.Recommendations, "a clean plate needs no advice")
	assert.Empty(t, result.Diagnostic)
}

func TestAnalyze_EmptyGrid(t *testing.T) {
	result := newTestService().Analyze(context.Background(), core.Grid{})

	assert.False(t, result.Structural.Valid)
	assert.Zero(t, result.Structural.Confidence)
	assert.Equal(t, domdil.PatternUnknown, result.Pattern.Type)
	assert.Equal(t, valscore.LevelUnacceptable, result.Validation.Overall.Level)
	assert.Empty(t, result.Adaptive)

	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, domint.RecCritical, result.Recommendations[0].Type)
	assert.Equal(t, 10, result.Recommendations[0].Priority)

	criticals := 0
	for _, rec := range result.Recommendations {
		if rec.Type == domint.RecCritical {
			criticals++
		}
	}
	assert.Equal(t, 1, criticals, "an unanalyzable grid carries exactly one critical recommendation")
}

func TestAnalyze_NilDetectorDegrades(t *testing.T) {
	service := NewAnalysisService(core.DefaultDetectionConfig(), units.NewParser(), nil)

	result := service.Analyze(context.Background(), cleanLogGrid())

	assert.Empty(t, result.Adaptive)
	assert.Equal(t, domdil.PatternLogScale, result.Pattern.Type, "pattern analysis is independent of the detector")
	assert.True(t, result.Structural.Valid)
}

type failingDetector struct{}

func (failingDetector) DetectPatterns(context.Context, []float64) ([]domdil.PatternCandidate, error) {
	return nil, errors.New("detector unavailable")
}

type slowDetector struct{}

func (slowDetector) DetectPatterns(ctx context.Context, _ []float64) ([]domdil.PatternCandidate, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Minute):
		return nil, nil
	}
}

func TestAnalyze_DetectorFailureDegrades(t *testing.T) {
	service := NewAnalysisService(core.DefaultDetectionConfig(), units.NewParser(), failingDetector{})

	result := service.Analyze(context.Background(), cleanLogGrid())

	assert.Empty(t, result.Adaptive)
	assert.Equal(t, domdil.PatternLogScale, result.Pattern.Type)
	assert.Equal(t, valscore.LevelExcellent, result.Validation.Overall.Level)
}

func TestAnalyze_DetectorTimeoutDegrades(t *testing.T) {
	cfg := core.DefaultDetectionConfig()
	cfg.AdaptiveTimeout = 10 * time.Millisecond
	service := NewAnalysisService(cfg, units.NewParser(), slowDetector{})

	start := time.Now()
	result := service.Analyze(context.Background(), cleanLogGrid())

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, result.Adaptive)
	assert.True(t, result.Structural.Valid)
}

func TestAnalyze_InnerAnalysesDeterministic(t *testing.T) {
	service := newTestService()
	grid := cleanLogGrid()

	first := service.Analyze(context.Background(), grid)
	second := service.Analyze(context.Background(), grid)

	// Only the envelope (id, timestamp) may differ between runs.
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Structural, second.Structural)
	assert.Equal(t, first.Pattern, second.Pattern)
	assert.Equal(t, first.Validation, second.Validation)
	assert.Equal(t, first.Adaptive, second.Adaptive)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestAnalyze_TextOnlyGridHasNoConcentrations(t *testing.T) {
	grid := core.GridFromStrings([][]string{
		{"Sample", "Notes"},
		{"alpha", "ok"},
		{"beta", "rerun"},
		{"gamma", "ok"},
	})

	result := newTestService().Analyze(context.Background(), grid)

	assert.Equal(t, -1, result.Structural.Columns.ConcentrationColumn)
	assert.Equal(t, domdil.PatternUnknown, result.Pattern.Type)
	assert.Equal(t, valscore.LevelUnacceptable, result.Validation.Overall.Level)
	assert.Empty(t, result.Unit)
}

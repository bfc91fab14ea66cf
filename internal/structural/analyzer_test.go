package structural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosescan/domain/core"
	"dosescan/domain/structure"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(core.DefaultDetectionConfig())
}

func TestAnalyze_StandardLabeledGrid(t *testing.T) {
	grid := core.GridFromStrings([][]string{
		{"Concentration (nM)", "Response A", "Response B"},
		{"1000", "0.95", "0.97"},
		{"100", "0.9", "0.88"},
		{"10", "0.5", "0.52"},
		{"1", "0.2", "0.22"},
		{"0.1", "0.05", "0.06"},
	})

	result := newTestAnalyzer().Analyze(grid)

	require.True(t, result.Valid)
	assert.Equal(t, 0, result.Header.Row)
	assert.InDelta(t, 1.0, result.Header.Confidence, 1e-9, "labeled header should saturate the score cap")

	assert.Equal(t, 0, result.Columns.ConcentrationColumn)
	assert.Equal(t, []int{1, 2}, result.Columns.ResponseColumns)
	assert.Empty(t, result.Columns.MetadataColumns)

	assert.Equal(t, 1, result.Region.StartRow)
	assert.Equal(t, 6, result.Region.EndRow)
	assert.InDelta(t, 1.0, result.Region.Completeness, 1e-9)

	assert.Equal(t, structure.LayoutStandard, result.Layout)
	assert.Greater(t, result.Confidence, 0.9)
}

func TestAnalyze_HeaderlessGrid(t *testing.T) {
	grid := core.GridFromStrings([][]string{
		{"1000", "50", "52"},
		{"100", "40", "41"},
		{"10", "20", "21"},
		{"1", "10", "11"},
		{"0.1", "5", "6"},
	})

	result := newTestAnalyzer().Analyze(grid)

	require.True(t, result.Valid)
	assert.Equal(t, -1, result.Header.Row, "all-numeric rows must not be taken as headers")
	assert.Equal(t, 0, result.Region.StartRow)

	// Pattern evidence alone still finds the dilution column.
	assert.Equal(t, 0, result.Columns.ConcentrationColumn)
	assert.Equal(t, structure.LayoutStandard, result.Layout)
}

func TestAnalyze_UnusableInput(t *testing.T) {
	t.Run("empty grid", func(t *testing.T) {
		result := newTestAnalyzer().Analyze(core.Grid{})
		assert.False(t, result.Valid)
		assert.Zero(t, result.Confidence)
		assert.Equal(t, "empty grid", result.Diagnostic)
		assert.Equal(t, -1, result.Columns.ConcentrationColumn)
	})

	t.Run("ragged grid", func(t *testing.T) {
		ragged := core.Grid{
			{core.NumberCell(1), core.NumberCell(2)},
			{core.NumberCell(3)},
		}
		result := newTestAnalyzer().Analyze(ragged)
		assert.False(t, result.Valid)
		assert.Equal(t, "ragged rows", result.Diagnostic)
	})
}

func TestAnalyze_MetadataColumn(t *testing.T) {
	grid := core.GridFromStrings([][]string{
		{"Dose (uM)", "Signal", "Well"},
		{"1000", "90", "A1"},
		{"100", "60", "A2"},
		{"10", "30", "A3"},
		{"1", "10", "A4"},
	})

	result := newTestAnalyzer().Analyze(grid)

	require.True(t, result.Valid)
	assert.Equal(t, 0, result.Columns.ConcentrationColumn)
	assert.Equal(t, []int{1}, result.Columns.ResponseColumns)
	assert.Equal(t, []int{2}, result.Columns.MetadataColumns)
}

func TestAnalyze_MultiBlockLayout(t *testing.T) {
	grid := core.GridFromStrings([][]string{
		{"Concentration", "Response"},
		{"1000", "90"},
		{"100", "60"},
		{"10", "30"},
		{"", ""},
		{"500", "80"},
		{"50", "40"},
	})

	result := newTestAnalyzer().Analyze(grid)

	require.True(t, result.Valid)
	assert.Equal(t, structure.LayoutMultiBlock, result.Layout)
}

func TestAnalyze_NoConcentrationColumnHalvesConfidence(t *testing.T) {
	// Text-only data region: no numeric column can qualify.
	grid := core.GridFromStrings([][]string{
		{"Sample", "Notes"},
		{"alpha", "ok"},
		{"beta", "ok"},
		{"gamma", "rerun"},
	})

	result := newTestAnalyzer().Analyze(grid)

	require.True(t, result.Valid)
	assert.Equal(t, -1, result.Columns.ConcentrationColumn)
	assert.Less(t, result.Confidence, 0.5)
}

func TestScoreHeaderRow_NumericRowPenalized(t *testing.T) {
	a := newTestAnalyzer()
	numeric := []core.Cell{core.NumberCell(1), core.NumberCell(2), core.NumberCell(3)}
	labeled := []core.Cell{core.TextCell("Concentration"), core.TextCell("Response"), core.TextCell("Well")}

	assert.LessOrEqual(t, a.scoreHeaderRow(numeric, 0).Score, 0.0)
	assert.Greater(t, a.scoreHeaderRow(labeled, 0).Score, 15.0)
}

func TestQuickPatternScore(t *testing.T) {
	a := newTestAnalyzer()

	// Perfect 10x series: full consistency plus the canonical-factor bonus.
	assert.InDelta(t, 15.0, a.quickPatternScore([]float64{1000, 100, 10, 1}), 1e-9)

	// Too few values score nothing.
	assert.Zero(t, a.quickPatternScore([]float64{10, 1}))
}

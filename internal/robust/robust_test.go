package robust

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestStdDev_MatchesScaledMAD(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	// MAD about the median 3 is 1.
	assert.InDelta(t, 1.4826, StdDev(data), 1e-12)
}

func TestZScore_DegenerateSpread(t *testing.T) {
	// Identical values have zero spread; nothing is an outlier.
	assert.Equal(t, 0.0, ZScore(10, 10, 0))
	assert.Equal(t, 0.0, ZScore(100, 10, 0))
	assert.Empty(t, Outliers([]float64{3, 3, 3, 3, 3}, DefaultTiers()))
}

func TestDefaultTiers(t *testing.T) {
	tiers := DefaultTiers()
	assert.Equal(t, 1.96, tiers.Mild)
	assert.Equal(t, 2.5, tiers.Moderate)
	assert.Equal(t, 3.5, tiers.Severe)
}

func TestTiersOf(t *testing.T) {
	// Configured bounds replace the defaults.
	tiers := TiersOf(3.0, 4.0, 5.0)
	assert.Equal(t, Tiers{Mild: 3.0, Moderate: 4.0, Severe: 5.0}, tiers)

	// Non-positive values keep the default for that bound only.
	tiers = TiersOf(0, 4.0, 0)
	assert.Equal(t, Tiers{Mild: 1.96, Moderate: 4.0, Severe: 3.5}, tiers)
}

func TestSeverityOf_CumulativeTiers(t *testing.T) {
	tiers := DefaultTiers()

	_, flagged := tiers.SeverityOf(1.9)
	assert.False(t, flagged)

	// The mild bound itself is never flagged; flagging is strict.
	_, flagged = tiers.SeverityOf(1.96)
	assert.False(t, flagged, "z exactly at the mild bound must not be flagged")

	sev, flagged := tiers.SeverityOf(1.9601)
	require.True(t, flagged)
	assert.Equal(t, Mild, sev)

	sev, _ = tiers.SeverityOf(2.6)
	assert.Equal(t, Moderate, sev)

	sev, _ = tiers.SeverityOf(3.6)
	assert.Equal(t, Severe, sev)
}

func TestOutliers_SevereAlwaysFlagged(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}
	flagged := Outliers(data, DefaultTiers())
	require.Len(t, flagged, 1)
	assert.Equal(t, 9, flagged[0].Index)
	assert.Equal(t, Severe, flagged[0].Severity)
	assert.Greater(t, flagged[0].ZScore, DefaultTiers().Severe)
}

func TestOutliers_RespectsConfiguredTiers(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}

	// z of the extreme value is ~25; loose bounds let it through.
	loose := Tiers{Mild: 30, Moderate: 40, Severe: 50}
	assert.Empty(t, Outliers(data, loose))

	tight := Tiers{Mild: 1.0, Moderate: 40, Severe: 50}
	assert.NotEmpty(t, Outliers(data, tight))
}

func TestCV(t *testing.T) {
	assert.InDelta(t, 0.0, CV([]float64{5, 5, 5}), 1e-12)
	assert.True(t, math.IsNaN(CV([]float64{5})))

	// Zero mean maps to the maximal CV so 1-CV scores stay bounded.
	assert.Equal(t, 1.0, CV([]float64{-1, 1}))
}

func TestCI95Z_IsTwoSided95(t *testing.T) {
	assert.InDelta(t, 1.96, CI95Z, 0.001)
}

package valscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelOf_FixedThresholds(t *testing.T) {
	assert.Equal(t, LevelExcellent, LevelOf(0.95))
	assert.Equal(t, LevelExcellent, LevelOf(0.90))
	assert.Equal(t, LevelGood, LevelOf(0.80))
	assert.Equal(t, LevelAcceptable, LevelOf(0.60))
	assert.Equal(t, LevelPoor, LevelOf(0.45))
	assert.Equal(t, LevelUnacceptable, LevelOf(0.39))
	assert.Equal(t, LevelUnacceptable, LevelOf(0))
}

func TestLevelOf_Monotonic(t *testing.T) {
	prev := -1
	for s := 0.0; s <= 1.0; s += 0.01 {
		rank := Rank(LevelOf(s))
		assert.GreaterOrEqual(t, rank, prev, "level rank must never decrease with score")
		prev = rank
	}
}

func TestScored_WeightedCombination(t *testing.T) {
	score := Scored(0.8,
		Factor{Name: "a", Weight: 0.5, Score: 1.0},
		Factor{Name: "b", Weight: 0.5, Score: 0.5},
	)
	assert.InDelta(t, 0.75, score.Score, 1e-12)
	assert.Equal(t, LevelGood, score.Level)
	assert.Equal(t, 0.8, score.Confidence)
}

func TestUnacceptable_CanonicalShape(t *testing.T) {
	result := Unacceptable("no data")
	assert.Equal(t, LevelUnacceptable, result.Overall.Level)
	assert.Zero(t, result.Overall.Score)
	assert.False(t, result.Valid)
	assert.Equal(t, "no data", result.Diagnostic)
}

package core

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDetectionConfig(t *testing.T) {
	cfg := DefaultDetectionConfig()

	total := 0.0
	for _, p := range cfg.FactorPriors {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9, "factor priors form a distribution")
	assert.InDelta(t, 0.30, cfg.MaxPrior(), 1e-9)

	factors := cfg.Factors()
	require.Len(t, factors, 5)
	for i := 1; i < len(factors); i++ {
		assert.Less(t, factors[i-1], factors[i], "factors iterate in ascending order")
	}
	assert.Contains(t, factors, math.Sqrt(10))

	assert.Equal(t, 5, cfg.MinPoints)
	assert.Equal(t, 8, cfg.RecommendedPoints)
	assert.Contains(t, cfg.AssayWindows, "binding")
	assert.Contains(t, cfg.AssayWindows, "general")

	assert.Equal(t, 1.96, cfg.MildZ)
	assert.Equal(t, 2.5, cfg.ModerateZ)
	assert.Equal(t, 3.5, cfg.SevereZ)
}

func TestLoadDetectionConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detection.yaml")
	content := `
factor_tolerance: 0.10
recommended_points: 10
adaptive_timeout_seconds: 5
mild_z: 3.0
factor_priors:
  2: 0.5
  10: 0.5
assay_windows:
  binding:
    min_nm: 0.01
    max_nm: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadDetectionConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.10, cfg.FactorTolerance)
	assert.Equal(t, 10, cfg.RecommendedPoints)
	assert.Equal(t, 5*time.Second, cfg.AdaptiveTimeout)
	assert.Equal(t, 3.0, cfg.MildZ)
	assert.Equal(t, 2.5, cfg.ModerateZ, "unspecified tiers keep their defaults")
	assert.Equal(t, map[float64]float64{2: 0.5, 10: 0.5}, cfg.FactorPriors)

	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.HeaderScanRows)
	assert.Equal(t, 5, cfg.MinPoints)

	// Window overrides merge over the default table.
	assert.Equal(t, AssayWindow{MinNM: 0.01, MaxNM: 1000}, cfg.AssayWindows["binding"])
	assert.Equal(t, AssayWindow{MinNM: 1e-1, MaxNM: 1e5}, cfg.AssayWindows["functional"])
}

func TestLoadDetectionConfig_MissingFile(t *testing.T) {
	cfg, err := LoadDetectionConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	// Defaults come back even on error so callers can degrade.
	assert.Equal(t, 10, cfg.HeaderScanRows)
}

package core

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// AssayWindow is the expected concentration interval for one assay type,
// in canonical nM.
type AssayWindow struct {
	MinNM float64 `yaml:"min_nm"`
	MaxNM float64 `yaml:"max_nm"`
}

// DetectionConfig carries every tunable the detection pipeline reads.
// It is an immutable value injected at construction; nothing in the
// pipeline consults package-level state, so tests can substitute
// alternative priors deterministically.
type DetectionConfig struct {
	// Structural analysis
	HeaderScanRows int `yaml:"header_scan_rows"` // Max rows scanned for a header
	SampleRows     int `yaml:"sample_rows"`      // Rows sampled when classifying columns

	// Canonical laboratory dilution factors and their prior mass
	FactorPriors map[float64]float64 `yaml:"factor_priors"`

	// Relative tolerance for matching a median ratio to a canonical factor
	FactorTolerance float64 `yaml:"factor_tolerance"`

	// Robust outlier tiers (robust z-score); values at a bound are not
	// flagged by it. Injected into every outlier-flagging component.
	MildZ     float64 `yaml:"mild_z"`
	ModerateZ float64 `yaml:"moderate_z"`
	SevereZ   float64 `yaml:"severe_z"`

	// Scientific validation
	MinPoints         int                    `yaml:"min_points"`         // Minimum concentration points
	RecommendedPoints int                    `yaml:"recommended_points"` // Recommended for fitting
	AssayWindows      map[string]AssayWindow `yaml:"assay_windows"`      // Expected nM windows per assay type
	PlausibleMinNM    float64                `yaml:"plausible_min_nm"`   // Absolute biological plausibility window
	PlausibleMaxNM    float64                `yaml:"plausible_max_nm"`

	// Adaptive detector budget (host-facing, degrades rather than aborts)
	AdaptiveTimeout time.Duration `yaml:"adaptive_timeout"`
	MemoryCeilingMB int           `yaml:"memory_ceiling_mb"`
}

// DefaultDetectionConfig returns the canonical laboratory defaults.
func DefaultDetectionConfig() DetectionConfig {
	sqrt10 := 3.1622776601683795
	return DetectionConfig{
		HeaderScanRows: 10,
		SampleRows:     10,
		FactorPriors: map[float64]float64{
			2:      0.25,
			3:      0.20,
			5:      0.15,
			10:     0.30,
			sqrt10: 0.10,
		},
		FactorTolerance:   0.15,
		MildZ:             1.96,
		ModerateZ:         2.5,
		SevereZ:           3.5,
		MinPoints:         5,
		RecommendedPoints: 8,
		AssayWindows: map[string]AssayWindow{
			"binding":      {MinNM: 1e-3, MaxNM: 1e4},
			"functional":   {MinNM: 1e-1, MaxNM: 1e5},
			"cytotoxicity": {MinNM: 1e2, MaxNM: 1e7},
			"enzymatic":    {MinNM: 1e-2, MaxNM: 1e5},
			"reporter":     {MinNM: 1e0, MaxNM: 1e6},
			"general":      {MinNM: 1e-3, MaxNM: 1e9},
		},
		PlausibleMinNM:  1e-3,
		PlausibleMaxNM:  1e9,
		AdaptiveTimeout: 30 * time.Second,
		MemoryCeilingMB: 500,
	}
}

// Factors returns the canonical dilution factors in ascending order.
// Deterministic iteration keeps classification and posterior selection
// bit-identical across calls.
func (c DetectionConfig) Factors() []float64 {
	out := make([]float64, 0, len(c.FactorPriors))
	for f := range c.FactorPriors {
		out = append(out, f)
	}
	sort.Float64s(out)
	return out
}

// MaxPrior returns the largest prior mass in the factor table.
func (c DetectionConfig) MaxPrior() float64 {
	max := 0.0
	for _, p := range c.FactorPriors {
		if p > max {
			max = p
		}
	}
	return max
}

// configOverride mirrors DetectionConfig for YAML decoding; only fields
// present in the file replace defaults.
type configOverride struct {
	HeaderScanRows    *int                   `yaml:"header_scan_rows"`
	FactorPriors      map[float64]float64    `yaml:"factor_priors"`
	FactorTolerance   *float64               `yaml:"factor_tolerance"`
	MildZ             *float64               `yaml:"mild_z"`
	ModerateZ         *float64               `yaml:"moderate_z"`
	SevereZ           *float64               `yaml:"severe_z"`
	MinPoints         *int                   `yaml:"min_points"`
	RecommendedPoints *int                   `yaml:"recommended_points"`
	AssayWindows      map[string]AssayWindow `yaml:"assay_windows"`
	AdaptiveTimeoutS  *int                   `yaml:"adaptive_timeout_seconds"`
	MemoryCeilingMB   *int                   `yaml:"memory_ceiling_mb"`
}

// LoadDetectionConfig applies YAML overrides from path on top of the
// defaults. Labs running non-canonical dilution schemes swap the prior
// table here instead of patching code.
func LoadDetectionConfig(path string) (DetectionConfig, error) {
	cfg := DefaultDetectionConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read detection config: %w", err)
	}

	var ov configOverride
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return cfg, fmt.Errorf("parse detection config: %w", err)
	}

	if ov.HeaderScanRows != nil {
		cfg.HeaderScanRows = *ov.HeaderScanRows
	}
	if len(ov.FactorPriors) > 0 {
		cfg.FactorPriors = ov.FactorPriors
	}
	if ov.FactorTolerance != nil {
		cfg.FactorTolerance = *ov.FactorTolerance
	}
	if ov.MildZ != nil {
		cfg.MildZ = *ov.MildZ
	}
	if ov.ModerateZ != nil {
		cfg.ModerateZ = *ov.ModerateZ
	}
	if ov.SevereZ != nil {
		cfg.SevereZ = *ov.SevereZ
	}
	if ov.MinPoints != nil {
		cfg.MinPoints = *ov.MinPoints
	}
	if ov.RecommendedPoints != nil {
		cfg.RecommendedPoints = *ov.RecommendedPoints
	}
	if len(ov.AssayWindows) > 0 {
		for k, w := range ov.AssayWindows {
			cfg.AssayWindows[k] = w
		}
	}
	if ov.AdaptiveTimeoutS != nil {
		cfg.AdaptiveTimeout = time.Duration(*ov.AdaptiveTimeoutS) * time.Second
	}
	if ov.MemoryCeilingMB != nil {
		cfg.MemoryCeilingMB = *ov.MemoryCeilingMB
	}

	return cfg, nil
}

// Package valscience independently assesses the scientific and
// statistical plausibility of a dose-response dataset: concentration
// range and biological relevance, response quality, and the prospects
// for sigmoidal curve fitting. It shares no state with the pattern
// analyzer; agreement between the two is judged downstream.
package valscience

import (
	"fmt"
	"math"

	"dosescan/domain/core"
	"dosescan/domain/valscore"
	"dosescan/internal/robust"
)

// Weights for the overall validation combination.
const (
	concentrationWeight = 0.4
	responseWeight      = 0.3
	doseResponseWeight  = 0.3
)

// Options carry caller hints into the validator.
type Options struct {
	AssayHint valscore.AssayType // Explicit assay type, if the caller knows it
	Units     []string           // Distinct source units observed while parsing
}

// Validator scores concentration, response and dose-response quality.
type Validator struct {
	cfg   core.DetectionConfig
	tiers robust.Tiers
}

// NewValidator creates a validator with the given configuration.
func NewValidator(cfg core.DetectionConfig) *Validator {
	return &Validator{
		cfg:   cfg,
		tiers: robust.TiersOf(cfg.MildZ, cfg.ModerateZ, cfg.SevereZ),
	}
}

// Validate produces the three sub-scores and their weighted overall.
// Empty or mismatched input yields the canonical unacceptable result;
// no error escapes.
func (v *Validator) Validate(concentrations []float64, responses [][]float64, opts Options) valscore.ValidationResult {
	if len(concentrations) == 0 {
		return valscore.Unacceptable("no concentration data")
	}
	if len(responses) > 0 && len(responses) != len(concentrations) {
		return valscore.Unacceptable(fmt.Sprintf(
			"mismatched input: %d concentrations, %d response rows", len(concentrations), len(responses)))
	}

	conc := v.validateConcentrations(concentrations, opts)
	resp := v.validateResponses(responses)
	doseResp := v.validateDoseResponse(concentrations, responses)

	overallScore := concentrationWeight*conc.Score + responseWeight*resp.Score + doseResponseWeight*doseResp.Score
	overall := valscore.ValidationScore{
		Score:      overallScore,
		Level:      valscore.LevelOf(overallScore),
		Confidence: (conc.Confidence + resp.Confidence + doseResp.Confidence) / 3,
	}

	return valscore.ValidationResult{
		Concentration: conc,
		Response:      resp,
		DoseResponse:  doseResp,
		Overall:       overall,
		Valid:         true,
	}
}

// orderOfMagnitude is log10(max/min) over positive values, 0 when
// undefined.
func orderOfMagnitude(values []float64) float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if math.IsInf(min, 1) || min <= 0 {
		return 0
	}
	return math.Log10(max / min)
}

func minMax(values []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

package valscore

// Level is the discrete quality band for a validation score.
type Level string

const (
	LevelExcellent    Level = "excellent"
	LevelGood         Level = "good"
	LevelAcceptable   Level = "acceptable"
	LevelPoor         Level = "poor"
	LevelUnacceptable Level = "unacceptable"
)

// Fixed score thresholds for level mapping.
const (
	ThresholdExcellent  = 0.90
	ThresholdGood       = 0.75
	ThresholdAcceptable = 0.60
	ThresholdPoor       = 0.40
)

// LevelOf maps a score in [0,1] to its level. Monotonic by construction.
func LevelOf(score float64) Level {
	switch {
	case score >= ThresholdExcellent:
		return LevelExcellent
	case score >= ThresholdGood:
		return LevelGood
	case score >= ThresholdAcceptable:
		return LevelAcceptable
	case score >= ThresholdPoor:
		return LevelPoor
	default:
		return LevelUnacceptable
	}
}

// Rank orders levels for comparisons: unacceptable=0 ... excellent=4.
func Rank(l Level) int {
	switch l {
	case LevelExcellent:
		return 4
	case LevelGood:
		return 3
	case LevelAcceptable:
		return 2
	case LevelPoor:
		return 1
	default:
		return 0
	}
}

// Factor is one weighted contribution to a validation score.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"` // [0,1]
	Detail string  `json:"detail,omitempty"`
}

// ValidationScore combines weighted factors into one scored dimension.
type ValidationScore struct {
	Score      float64  `json:"score"` // [0,1]
	Level      Level    `json:"level"`
	Confidence float64  `json:"confidence"`
	Factors    []Factor `json:"factors,omitempty"`
}

// Scored builds a ValidationScore from weighted factors.
func Scored(confidence float64, factors ...Factor) ValidationScore {
	total := 0.0
	for _, f := range factors {
		total += f.Weight * f.Score
	}
	if total < 0 {
		total = 0
	}
	if total > 1 {
		total = 1
	}
	return ValidationScore{
		Score:      total,
		Level:      LevelOf(total),
		Confidence: confidence,
		Factors:    factors,
	}
}

// Zero is the all-zero unacceptable score.
func Zero() ValidationScore {
	return ValidationScore{Level: LevelUnacceptable}
}

// RangeCategory classifies the concentration span.
type RangeCategory string

const (
	RangeAppropriate RangeCategory = "appropriate"
	RangeTooNarrow   RangeCategory = "too-narrow"
	RangeTooWide     RangeCategory = "too-wide"
	RangeUnrealistic RangeCategory = "unrealistic"
)

// AssayType is the inferred experimental category.
type AssayType string

const (
	AssayBinding      AssayType = "binding"
	AssayFunctional   AssayType = "functional"
	AssayCytotoxicity AssayType = "cytotoxicity"
	AssayEnzymatic    AssayType = "enzymatic"
	AssayReporter     AssayType = "reporter"
	AssayGeneral      AssayType = "general"
)

// PowerAnalysis estimates statistical power from the point count.
type PowerAnalysis struct {
	SampleSize         int     `json:"sample_size"`
	MinimumPoints      int     `json:"minimum_points"`
	RecommendedPoints  int     `json:"recommended_points"`
	EstimatedPower     float64 `json:"estimated_power"`
	AdequateForFitting bool    `json:"adequate_for_fitting"` // EstimatedPower >= 0.80
}

// ConcentrationValidation scores the concentration series.
type ConcentrationValidation struct {
	ValidationScore
	RangeCategory RangeCategory `json:"range_category"`
	Coverage      float64       `json:"coverage"` // Overlap with the expected assay window
	AssayType     AssayType     `json:"assay_type"`
	Power         PowerAnalysis `json:"power"`
}

// ReplicateCV holds within- and between-replicate variation.
type ReplicateCV struct {
	Within  float64 `json:"within"`
	Between float64 `json:"between"`
}

// SignalToNoise characterizes the response dynamic range.
type SignalToNoise struct {
	DynamicRange float64 `json:"dynamic_range"` // max/min of mean response per concentration
	Quality      string  `json:"quality"`       // excellent | good | acceptable | poor | inadequate
}

// ResponseValidation scores the response matrix.
type ResponseValidation struct {
	ValidationScore
	Completeness   float64       `json:"completeness"`
	MissingPattern string        `json:"missing_pattern"` // none | scattered | truncated | systematic
	Replicates     ReplicateCV   `json:"replicates"`
	OutlierCount   int           `json:"outlier_count"`
	Signal         SignalToNoise `json:"signal"`
}

// FittingProspects is the upstream signal for a curve-fitting module.
type FittingProspects struct {
	ConvergenceProbability   float64 `json:"convergence_probability"`
	ParameterIdentifiability float64 `json:"parameter_identifiability"`
}

// DoseResponseValidation scores the concentration-response relationship.
type DoseResponseValidation struct {
	ValidationScore
	RelationshipStrength float64          `json:"relationship_strength"`
	Monotonic            bool             `json:"monotonic"`
	Violations           []int            `json:"violations,omitempty"` // Concentration indices breaking monotonicity
	DynamicRangeAdequate bool             `json:"dynamic_range_adequate"`
	Fitting              FittingProspects `json:"fitting"`
}

// ValidationResult is the full output of the scientific validator.
// Overall = 0.4*concentration + 0.3*response + 0.3*dose-response.
type ValidationResult struct {
	Concentration ConcentrationValidation `json:"concentration"`
	Response      ResponseValidation      `json:"response"`
	DoseResponse  DoseResponseValidation  `json:"dose_response"`
	Overall       ValidationScore         `json:"overall"`
	Valid         bool                    `json:"valid"`
	Diagnostic    string                  `json:"diagnostic,omitempty"`
}

// Unacceptable is the canonical result for empty or mismatched input.
func Unacceptable(diagnostic string) ValidationResult {
	return ValidationResult{
		Concentration: ConcentrationValidation{ValidationScore: Zero(), RangeCategory: RangeUnrealistic, AssayType: AssayGeneral},
		Response:      ResponseValidation{ValidationScore: Zero(), MissingPattern: "systematic"},
		DoseResponse:  DoseResponseValidation{ValidationScore: Zero()},
		Overall:       Zero(),
		Diagnostic:    diagnostic,
	}
}

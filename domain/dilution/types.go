package dilution

import "math"

// PatternType classifies the dilution relationship between consecutive
// concentrations in a titration series.
type PatternType string

const (
	PatternSerial    PatternType = "serial"    // Constant factor (2x, 3x, 5x, ...)
	PatternLogScale  PatternType = "log-scale" // Factor 10
	PatternHalfLog   PatternType = "half-log"  // Factor sqrt(10)
	PatternCustom    PatternType = "custom"    // Consistent but non-canonical factor
	PatternIrregular PatternType = "irregular" // Ratio outliers or low consistency
	PatternUnknown   PatternType = "unknown"
)

// OutlierSeverity tiers a flagged ratio by the highest robust z
// threshold it exceeds.
type OutlierSeverity string

const (
	SeverityMild     OutlierSeverity = "mild"     // z > 1.96
	SeverityModerate OutlierSeverity = "moderate" // z > 2.5
	SeveritySevere   OutlierSeverity = "severe"   // z > 3.5
)

// RatioOutlier is one consecutive-ratio outlier.
type RatioOutlier struct {
	Index    int             `json:"index"` // Position in the ratio sequence
	Ratio    float64         `json:"ratio"`
	ZScore   float64         `json:"z_score"`
	Severity OutlierSeverity `json:"severity"`
}

// RatioStats holds robust statistics over consecutive concentration ratios.
// INVARIANT: ConsistencyScore derives only from ratios with flagged
// outliers excluded, discounted by the flagged fraction.
type RatioStats struct {
	Ratios           []float64      `json:"ratios"`
	MedianRatio      float64        `json:"median_ratio"`
	RobustStdDev     float64        `json:"robust_std_dev"` // 1.4826 * MAD
	Outliers         []RatioOutlier `json:"outliers,omitempty"`
	ConsistencyScore float64        `json:"consistency_score"` // [0,1]
}

// OutlierIndices returns the flagged ratio positions.
func (s RatioStats) OutlierIndices() []int {
	out := make([]int, 0, len(s.Outliers))
	for _, o := range s.Outliers {
		out = append(out, o.Index)
	}
	return out
}

// BayesianInference records the posterior over canonical dilution factors.
// PosteriorProbability is the unnormalized posterior of the best factor;
// treat it as a relative evidence score, not a calibrated probability.
type BayesianInference struct {
	BestFactor           float64             `json:"best_factor"`
	PosteriorProbability float64             `json:"posterior_probability"`
	EvidenceStrength     float64             `json:"evidence_strength"` // Likelihood under the best factor
	PriorInfluence       float64             `json:"prior_influence"`   // Structural property of the prior table
	Posteriors           map[float64]float64 `json:"posteriors,omitempty"`
}

// RangeMetrics characterizes the concentration span.
// LogRange and OrderOfMagnitude are aliases carrying the same value,
// preserved for compatibility with existing consumers.
type RangeMetrics struct {
	Min              float64 `json:"min"`
	Max              float64 `json:"max"`
	LogRange         float64 `json:"log_range"`          // log10(max/min)
	OrderOfMagnitude float64 `json:"order_of_magnitude"` // Alias of LogRange
}

// QualityMetrics scores the raw series quality.
type QualityMetrics struct {
	Completeness float64 `json:"completeness"` // Non-empty fraction of source cells
	Monotonicity float64 `json:"monotonicity"` // Strictly-decreasing adjacent fraction
	Spacing      float64 `json:"spacing"`      // max(0, 1 - CV(ratios))
}

// DilutionPattern is the full output of the pattern analyzer.
type DilutionPattern struct {
	Type       PatternType       `json:"type"`
	Factor     float64           `json:"factor,omitempty"`   // Dilution factor for serial/custom/log variants
	LogBase    float64           `json:"log_base,omitempty"` // 10 for the two log variants
	RawRatios  []float64         `json:"raw_ratios,omitempty"`
	Stats      RatioStats        `json:"stats"`
	Bayesian   BayesianInference `json:"bayesian"`
	Range      RangeMetrics      `json:"range"`
	Quality    QualityMetrics    `json:"quality"`
	Confidence float64           `json:"confidence"`
	PointCount int               `json:"point_count"`
}

// EmptyPattern is the canonical result for fewer than 3 valid points.
func EmptyPattern() DilutionPattern {
	return DilutionPattern{
		Type: PatternUnknown,
		Stats: RatioStats{
			MedianRatio:  math.NaN(),
			RobustStdDev: math.NaN(),
		},
		Range: RangeMetrics{
			Min:              math.NaN(),
			Max:              math.NaN(),
			LogRange:         math.NaN(),
			OrderOfMagnitude: math.NaN(),
		},
	}
}

// PatternCandidate is one ranked candidate from an adaptive detector.
type PatternCandidate struct {
	Type       PatternType        `json:"type"`
	Confidence float64            `json:"confidence"`
	Factor     float64            `json:"factor,omitempty"`
	Params     map[string]float64 `json:"params,omitempty"`
}

package integrate

import (
	"sort"
	"time"

	"dosescan/domain/dilution"
	"dosescan/domain/structure"
	"dosescan/domain/valscore"
)

// MethodAgreement holds pairwise similarity between independent
// detection methods. Each defaults to a neutral 0.5 when one side is
// unavailable.
type MethodAgreement struct {
	StructuralVsPattern    float64 `json:"structural_vs_pattern"`
	PatternVsValidation    float64 `json:"pattern_vs_validation"`
	StructuralVsValidation float64 `json:"structural_vs_validation"`
}

// Mean returns the overall consensus over the three pairs.
func (a MethodAgreement) Mean() float64 {
	return (a.StructuralVsPattern + a.PatternVsValidation + a.StructuralVsValidation) / 3
}

// IntegrationMetrics are the fused cross-method scores, all in [0,1].
type IntegrationMetrics struct {
	Consensus       float64         `json:"consensus"`
	CrossValidation float64         `json:"cross_validation"`
	Robustness      float64         `json:"robustness"`
	Reliability     float64         `json:"reliability"`
	Agreement       MethodAgreement `json:"agreement"`
}

// UncertaintyInterval bounds the overall confidence estimate.
type UncertaintyInterval struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Width  float64 `json:"width"`
	Method string  `json:"method"`
}

// RobustConfidence is the calibrated overall confidence with its
// per-method components.
type RobustConfidence struct {
	Overall    float64             `json:"overall"`
	Structural float64             `json:"structural"`
	Pattern    float64             `json:"pattern"` // Best adaptive candidate confidence
	Validation float64             `json:"validation"`
	Consensus  float64             `json:"consensus"`
	Interval   UncertaintyInterval `json:"interval"`
}

// RecommendationType orders advice by urgency.
type RecommendationType string

const (
	RecCritical     RecommendationType = "critical"
	RecImportant    RecommendationType = "important"
	RecSuggestion   RecommendationType = "suggestion"
	RecOptimization RecommendationType = "optimization"
)

// Impact estimates what acting on a recommendation buys.
type Impact struct {
	Confidence  float64 `json:"confidence"`
	Accuracy    float64 `json:"accuracy"`
	Reliability float64 `json:"reliability"`
}

// Guidance describes how to act on a recommendation.
type Guidance struct {
	Complexity string   `json:"complexity"` // trivial | moderate | involved
	Steps      []string `json:"steps"`
}

// Recommendation is pure derived data, regenerated per analysis and
// never persisted.
type Recommendation struct {
	Type     RecommendationType `json:"type"`
	Priority int                `json:"priority"` // 1-10, higher first
	Category string             `json:"category"`
	Message  string             `json:"message"`
	Impact   Impact             `json:"impact"`
	Guidance Guidance           `json:"guidance"`
}

// SortRecommendations orders by descending priority; ties keep the
// generation order stable.
func SortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority > recs[j].Priority
	})
}

// AnalysisResult is the single structured output of one analyze call.
// Consumers (import pipeline, review UI, correction workflow) read it;
// none of them mutate it.
type AnalysisResult struct {
	ID         string    `json:"id"`
	ComputedAt time.Time `json:"computed_at"`

	Structural structure.StructuralAnalysis `json:"structural"`
	Unit       string                       `json:"unit,omitempty"` // Canonical detected unit
	Pattern    dilution.DilutionPattern     `json:"pattern"`
	Validation valscore.ValidationResult    `json:"validation"`
	Adaptive   []dilution.PatternCandidate  `json:"adaptive,omitempty"`

	Metrics         IntegrationMetrics `json:"metrics"`
	Confidence      RobustConfidence   `json:"confidence"`
	Recommendations []Recommendation   `json:"recommendations"`

	Diagnostic string `json:"diagnostic,omitempty"`
}

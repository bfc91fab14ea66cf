// Package app wires the detection pipeline: structural pass first,
// then pattern analysis, scientific validation and the adaptive
// detector fanned out concurrently, joined into the integration engine.
package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dosescan/domain/core"
	domdil "dosescan/domain/dilution"
	domint "dosescan/domain/integrate"
	"dosescan/domain/structure"
	"dosescan/domain/valscore"
	"dosescan/internal"
	"dosescan/internal/dilution"
	"dosescan/internal/integrate"
	"dosescan/internal/structural"
	"dosescan/internal/valscience"
	"dosescan/ports"
)

// AnalysisService runs one full detection pass over a raw grid.
// All state is per-call; the service itself is safe for concurrent use.
type AnalysisService struct {
	cfg        core.DetectionConfig
	structural *structural.Analyzer
	pattern    *dilution.Analyzer
	validator  *valscience.Validator
	engine     *integrate.Engine
	parser     ports.ConcentrationParser
	detector   ports.AdaptiveDetector // May be nil; integration degrades to neutral
	logger     *internal.Logger
}

// NewAnalysisService builds the pipeline around the injected
// collaborators. A nil detector is allowed.
func NewAnalysisService(cfg core.DetectionConfig, parser ports.ConcentrationParser, detector ports.AdaptiveDetector) *AnalysisService {
	return &AnalysisService{
		cfg:        cfg,
		structural: structural.NewAnalyzer(cfg),
		pattern:    dilution.NewAnalyzer(cfg, parser),
		validator:  valscience.NewValidator(cfg),
		engine:     integrate.NewEngine(cfg),
		parser:     parser,
		detector:   detector,
		logger:     internal.NewLogger("AnalysisService"),
	}
}

// Analyze is total: any unexpected computation error is converted into
// a fully-populated zero-confidence result rather than escaping.
func (s *AnalysisService) Analyze(ctx context.Context, grid core.Grid) (result domint.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered from analysis panic: %v", r)
			result = s.errorResult(fmt.Sprintf("internal analysis error: %v", r))
		}
	}()

	structuralResult := s.structural.Analyze(grid)

	extraction := s.extractColumns(grid, structuralResult)

	var (
		pattern    domdil.DilutionPattern
		validation valscore.ValidationResult
		candidates []domdil.PatternCandidate
	)

	// Pattern analysis, validation and the adaptive detector share only
	// the extracted columns; fan out, then join before integration.
	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pattern = s.pattern.Analyze(extraction.concCells)
		return nil
	})
	g.Go(func() error {
		validation = s.validator.Validate(extraction.concentrations, extraction.responses, valscience.Options{
			Units: extraction.units,
		})
		return nil
	})
	g.Go(func() error {
		candidates = s.detectAdaptive(groupCtx, extraction.concentrations)
		return nil
	})

	// Workers only report through their closures.
	_ = g.Wait()

	metrics, confidence, recommendations := s.engine.Integrate(structuralResult, pattern, validation, candidates)

	return domint.AnalysisResult{
		ID:              uuid.NewString(),
		ComputedAt:      time.Now().UTC(),
		Structural:      structuralResult,
		Unit:            extraction.dominantUnit,
		Pattern:         pattern,
		Validation:      validation,
		Adaptive:        candidates,
		Metrics:         metrics,
		Confidence:      confidence,
		Recommendations: recommendations,
		Diagnostic:      s.sizeWarning(grid),
	}
}

// detectAdaptive invokes the collaborator under the configured timeout.
// Timeout or failure degrades to an empty candidate list.
func (s *AnalysisService) detectAdaptive(ctx context.Context, concentrations []float64) []domdil.PatternCandidate {
	if s.detector == nil || len(concentrations) == 0 {
		return nil
	}

	timeout := s.cfg.AdaptiveTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	detectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candidates, err := s.detector.DetectPatterns(detectCtx, concentrations)
	if err != nil {
		s.logger.Warn("adaptive detector degraded: %v", err)
		return nil
	}
	return candidates
}

type extraction struct {
	concCells      []core.Cell
	concentrations []float64
	units          []string
	responses      [][]float64
	dominantUnit   string
}

// extractColumns pulls the concentration column and aligned response
// rows out of the mapped data region. Rows whose concentration cell
// fails to parse are dropped from both sides so lengths always match.
func (s *AnalysisService) extractColumns(grid core.Grid, sa structure.StructuralAnalysis) extraction {
	var ex extraction
	if !sa.Valid || sa.Columns.ConcentrationColumn < 0 {
		return ex
	}

	region := sa.Region
	concCol := sa.Columns.ConcentrationColumn
	ex.concCells = grid.Column(concCol, region.StartRow, region.EndRow)

	unitCounts := map[string]int{}
	for r := region.StartRow; r < region.EndRow; r++ {
		q, ok := s.parser.Parse(grid.Cell(r, concCol))
		if !ok {
			continue
		}
		value, err := s.parser.Normalize(q)
		if err != nil || value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}

		ex.concentrations = append(ex.concentrations, value)
		ex.units = append(ex.units, q.Unit)
		unitCounts[q.Unit]++

		row := make([]float64, 0, len(sa.Columns.ResponseColumns))
		for _, col := range sa.Columns.ResponseColumns {
			if v, ok := grid.Cell(r, col).AsNumber(); ok {
				row = append(row, v)
			} else {
				row = append(row, math.NaN())
			}
		}
		ex.responses = append(ex.responses, row)
	}

	if len(sa.Columns.ResponseColumns) == 0 {
		ex.responses = nil
	}

	best := 0
	for unit, n := range unitCounts {
		if n > best || (n == best && unit == s.parser.CanonicalUnit()) {
			best = n
			ex.dominantUnit = unit
		}
	}
	return ex
}

// sizeWarning notes when a grid approaches the configured memory
// ceiling; the budget sizes warnings, it never aborts computation.
func (s *AnalysisService) sizeWarning(grid core.Grid) string {
	if s.cfg.MemoryCeilingMB <= 0 {
		return ""
	}
	const bytesPerCell = 64 // Cell struct plus derived slices, rough upper bound
	estimateMB := grid.Rows() * grid.Cols() * bytesPerCell / (1024 * 1024)
	if estimateMB > s.cfg.MemoryCeilingMB {
		return fmt.Sprintf("grid is large (~%dMB working estimate, ceiling %dMB); analysis may be slow", estimateMB, s.cfg.MemoryCeilingMB)
	}
	return ""
}

// errorResult is the canonical systemic-failure output: all confidences
// zero and one critical recommendation citing the error.
func (s *AnalysisService) errorResult(diagnostic string) domint.AnalysisResult {
	recs := []domint.Recommendation{{
		Type:     domint.RecCritical,
		Priority: 10,
		Category: "system",
		Message:  diagnostic,
		Impact:   domint.Impact{Confidence: 1, Accuracy: 1, Reliability: 1},
		Guidance: domint.Guidance{
			Complexity: "moderate",
			Steps:      []string{"Report the analysis input that triggered this error", "Re-run with a simplified grid"},
		},
	}}

	return domint.AnalysisResult{
		ID:              uuid.NewString(),
		ComputedAt:      time.Now().UTC(),
		Structural:      structure.Invalid(diagnostic),
		Pattern:         domdil.EmptyPattern(),
		Validation:      valscore.Unacceptable(diagnostic),
		Metrics:         domint.IntegrationMetrics{Agreement: domint.MethodAgreement{StructuralVsPattern: 0.5, PatternVsValidation: 0.5, StructuralVsValidation: 0.5}},
		Confidence:      domint.RobustConfidence{Interval: domint.UncertaintyInterval{Method: "normal-approximation"}},
		Recommendations: recs,
		Diagnostic:      diagnostic,
	}
}

// Package dilution characterizes a concentration series as a dilution
// pattern: robust ratio statistics, outlier tiers, a Bayesian posterior
// over canonical laboratory factors, and a deterministic type decision.
package dilution

import (
	"math"
	"sort"

	"dosescan/domain/core"
	"dosescan/domain/dilution"
	"dosescan/internal/robust"
	"dosescan/ports"
)

const (
	minValidPoints     = 3
	irregularThreshold = 0.3
	customThreshold    = 0.7
	minLikelihoodVar   = 0.01
)

// Analyzer runs the dilution-pattern analysis.
type Analyzer struct {
	cfg    core.DetectionConfig
	parser ports.ConcentrationParser
	tiers  robust.Tiers
}

// NewAnalyzer creates a pattern analyzer using the given unit-aware parser.
func NewAnalyzer(cfg core.DetectionConfig, parser ports.ConcentrationParser) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		parser: parser,
		tiers:  robust.TiersOf(cfg.MildZ, cfg.ModerateZ, cfg.SevereZ),
	}
}

// Analyze classifies the concentration column. Fewer than 3 valid
// values yield the canonical empty pattern; the function never fails.
func (a *Analyzer) Analyze(cells []core.Cell) dilution.DilutionPattern {
	values, completeness := a.parseConcentrations(cells)
	if len(values) < minValidPoints {
		p := dilution.EmptyPattern()
		p.Quality.Completeness = completeness
		p.PointCount = len(values)
		return p
	}

	monotonicity := sourceMonotonicity(values)

	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	ratios := consecutiveRatios(sorted)
	stats := a.ratioStats(ratios)
	bayes := a.classifyFactor(stats)

	pattern := dilution.DilutionPattern{
		Stats:      stats,
		Bayesian:   bayes,
		Range:      rangeMetrics(sorted),
		PointCount: len(values),
		Quality: dilution.QualityMetrics{
			Completeness: completeness,
			Monotonicity: monotonicity,
			Spacing:      spacingScore(ratios),
		},
	}

	a.decideType(&pattern)
	pattern.Confidence = patternConfidence(pattern)
	return pattern
}

// AnalyzeValues runs the analysis over already-normalized numbers.
func (a *Analyzer) AnalyzeValues(values []float64) dilution.DilutionPattern {
	cells := make([]core.Cell, len(values))
	for i, v := range values {
		cells[i] = core.NumberCell(v)
	}
	return a.Analyze(cells)
}

// parseConcentrations coerces cells to positive finite nM values.
// Unparseable, non-positive and non-finite cells are dropped; the drop
// count surfaces through completeness rather than errors.
func (a *Analyzer) parseConcentrations(cells []core.Cell) (values []float64, completeness float64) {
	nonEmpty := 0
	for _, cell := range cells {
		if cell.Kind != core.CellEmpty {
			nonEmpty++
		}
		q, ok := a.parser.Parse(cell)
		if !ok {
			continue
		}
		v, err := a.parser.Normalize(q)
		if err != nil {
			continue
		}
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if len(cells) > 0 {
		completeness = float64(nonEmpty) / float64(len(cells))
	}
	return values, completeness
}

func consecutiveRatios(sortedDesc []float64) []float64 {
	var ratios []float64
	for i := 0; i < len(sortedDesc)-1; i++ {
		if sortedDesc[i+1] <= 0 {
			continue
		}
		r := sortedDesc[i] / sortedDesc[i+1]
		if r > 0 && !math.IsNaN(r) && !math.IsInf(r, 0) {
			ratios = append(ratios, r)
		}
	}
	return ratios
}

// ratioStats computes robust statistics over the ratio sequence.
// Consistency uses only the ratios that survive outlier flagging,
// discounted quadratically by the flagged fraction: one bad transfer in
// a short series should read as a damaged pattern, not a clean one.
func (a *Analyzer) ratioStats(ratios []float64) dilution.RatioStats {
	stats := dilution.RatioStats{
		Ratios:       ratios,
		MedianRatio:  robust.Median(ratios),
		RobustStdDev: robust.StdDev(ratios),
	}
	if len(ratios) == 0 {
		return stats
	}

	flagged := robust.Outliers(ratios, a.tiers)
	flaggedIdx := make(map[int]bool, len(flagged))
	for _, o := range flagged {
		stats.Outliers = append(stats.Outliers, dilution.RatioOutlier{
			Index:    o.Index,
			Ratio:    o.Value,
			ZScore:   o.ZScore,
			Severity: dilution.OutlierSeverity(o.Severity),
		})
		flaggedIdx[o.Index] = true
	}

	clean := make([]float64, 0, len(ratios))
	for i, r := range ratios {
		if !flaggedIdx[i] {
			clean = append(clean, r)
		}
	}
	if len(clean) < 2 {
		stats.ConsistencyScore = 0
		return stats
	}

	cv := robust.CV(clean)
	if math.IsNaN(cv) {
		stats.ConsistencyScore = 0
		return stats
	}
	cleanFraction := float64(len(clean)) / float64(len(ratios))
	stats.ConsistencyScore = robust.Clamp(math.Max(0, 1-cv)*cleanFraction*cleanFraction, 0, 1)
	return stats
}

// classifyFactor computes the posterior over canonical dilution factors.
// The likelihood is a Gaussian kernel over the relative deviation of the
// observed median ratio, sharpened as consistency rises. The posterior
// is reported unnormalized.
func (a *Analyzer) classifyFactor(stats dilution.RatioStats) dilution.BayesianInference {
	inference := dilution.BayesianInference{
		PriorInfluence: priorInfluence(a.cfg),
		Posteriors:     make(map[float64]float64, len(a.cfg.FactorPriors)),
	}
	if math.IsNaN(stats.MedianRatio) {
		return inference
	}

	variance := math.Max(minLikelihoodVar, 1-stats.ConsistencyScore)

	bestPosterior := -1.0
	for _, f := range a.cfg.Factors() {
		rel := math.Abs(stats.MedianRatio-f) / f
		likelihood := math.Exp(-0.5 * math.Pow(rel/variance, 2))
		posterior := likelihood * a.cfg.FactorPriors[f]
		inference.Posteriors[f] = posterior

		if posterior > bestPosterior {
			bestPosterior = posterior
			inference.BestFactor = f
			inference.PosteriorProbability = posterior
			inference.EvidenceStrength = likelihood
		}
	}
	return inference
}

// priorInfluence is a fixed structural property of the prior table:
// how far the strongest prior sits above a uniform one.
func priorInfluence(cfg core.DetectionConfig) float64 {
	n := len(cfg.FactorPriors)
	if n == 0 {
		return 0
	}
	maxPrior := cfg.MaxPrior()
	if maxPrior == 0 {
		return 0
	}
	uniform := 1.0 / float64(n)
	return (maxPrior - uniform) / maxPrior
}

// decideType applies the deterministic decision ladder. Ratio outliers
// or low consistency mark the series irregular before any factor
// matching; otherwise the nearest canonical factor within tolerance
// names the type, with consistent non-canonical series as custom.
func (a *Analyzer) decideType(p *dilution.DilutionPattern) {
	stats := p.Stats
	if len(stats.Ratios) < 2 {
		p.Type = dilution.PatternUnknown
		p.RawRatios = stats.Ratios
		return
	}
	if stats.ConsistencyScore < irregularThreshold || len(stats.Outliers) > 0 {
		p.Type = dilution.PatternIrregular
		p.RawRatios = stats.Ratios
		return
	}

	bestFactor, bestRel := 0.0, math.Inf(1)
	for _, f := range a.cfg.Factors() {
		rel := math.Abs(stats.MedianRatio-f) / f
		if rel < bestRel {
			bestRel = rel
			bestFactor = f
		}
	}

	if bestRel <= a.cfg.FactorTolerance {
		switch {
		case factorEquals(bestFactor, 10):
			p.Type = dilution.PatternLogScale
			p.Factor = 10
			p.LogBase = 10
		case factorEquals(bestFactor, math.Sqrt(10)):
			p.Type = dilution.PatternHalfLog
			p.Factor = math.Sqrt(10)
			p.LogBase = 10
		default:
			p.Type = dilution.PatternSerial
			p.Factor = bestFactor
		}
		return
	}

	if stats.ConsistencyScore > customThreshold {
		p.Type = dilution.PatternCustom
		p.Factor = stats.MedianRatio
		return
	}

	p.Type = dilution.PatternUnknown
	p.RawRatios = stats.Ratios
}

func factorEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func rangeMetrics(sortedDesc []float64) dilution.RangeMetrics {
	max := sortedDesc[0]
	min := sortedDesc[len(sortedDesc)-1]
	logRange := 0.0
	if min > 0 {
		logRange = math.Log10(max / min)
	}
	return dilution.RangeMetrics{
		Min:              min,
		Max:              max,
		LogRange:         logRange,
		OrderOfMagnitude: logRange,
	}
}

// sourceMonotonicity is the strictly-decreasing fraction of adjacent
// pairs in source order; 1.0 means the sheet already follows the
// highest-to-lowest laboratory convention.
func sourceMonotonicity(values []float64) float64 {
	if len(values) < 2 {
		return 1
	}
	decreasing := 0
	for i := 0; i < len(values)-1; i++ {
		if values[i] > values[i+1] {
			decreasing++
		}
	}
	return float64(decreasing) / float64(len(values)-1)
}

func spacingScore(ratios []float64) float64 {
	if len(ratios) < 2 {
		return 0
	}
	cv := robust.CV(ratios)
	if math.IsNaN(cv) {
		return 0
	}
	return math.Max(0, 1-cv)
}

// patternConfidence blends consistency with Bayesian evidence for typed
// patterns and discounts damaged or unclassified series.
func patternConfidence(p dilution.DilutionPattern) float64 {
	switch p.Type {
	case dilution.PatternSerial, dilution.PatternLogScale, dilution.PatternHalfLog, dilution.PatternCustom:
		return robust.Clamp(0.6*p.Stats.ConsistencyScore+0.4*p.Bayesian.EvidenceStrength, 0, 1)
	case dilution.PatternIrregular:
		return robust.Clamp(0.4*p.Stats.ConsistencyScore, 0, 1)
	default:
		return robust.Clamp(0.2*p.Stats.ConsistencyScore, 0, 1)
	}
}

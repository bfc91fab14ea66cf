package valscience

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"dosescan/domain/valscore"
	"dosescan/internal/robust"
)

// Dose-response factor weights.
const (
	wStrength     = 0.40
	wMonotonicity = 0.30
	wDynamicRange = 0.30
)

// validateDoseResponse scores the concentration-response relationship
// and estimates the prospects for sigmoidal curve fitting. Fitting
// itself happens elsewhere; this is its upstream go/no-go signal.
func (v *Validator) validateDoseResponse(concentrations []float64, responses [][]float64) valscore.DoseResponseValidation {
	if len(responses) == 0 {
		return valscore.DoseResponseValidation{ValidationScore: valscore.Zero()}
	}

	concs, means := pairedMeans(concentrations, responses)
	if len(concs) < 3 {
		return valscore.DoseResponseValidation{ValidationScore: valscore.Zero()}
	}

	strength := spearmanStrength(concs, means)
	violations := monotonicityViolations(concs, means)
	monotonic := len(violations) == 0

	dynRange := meanDynamicRange(means)
	dynAdequate := dynRange >= 3

	oom := orderOfMagnitude(concs)
	fitting := valscore.FittingProspects{
		ConvergenceProbability:   robust.Clamp(0.2+0.5*strength+boolBonus(dynAdequate, 0.15)+boolBonus(len(concs) >= v.cfg.RecommendedPoints, 0.15), 0, 1),
		ParameterIdentifiability: robust.Clamp(0.3+0.4*strength+0.3*math.Min(1, oom/4), 0, 1),
	}

	violationFraction := float64(len(violations)) / float64(len(concs)-1)
	dynScore := 0.2
	switch {
	case dynRange >= 5:
		dynScore = 1.0
	case dynRange >= 3:
		dynScore = 0.7
	case dynRange >= 2:
		dynScore = 0.45
	}

	factors := []valscore.Factor{
		{Name: "relationship_strength", Weight: wStrength, Score: strength},
		{Name: "monotonicity", Weight: wMonotonicity, Score: robust.Clamp(1-violationFraction, 0, 1)},
		{Name: "dynamic_range", Weight: wDynamicRange, Score: dynScore},
	}

	confidence := robust.Clamp(float64(len(concs))/float64(v.cfg.RecommendedPoints), 0, 1)

	return valscore.DoseResponseValidation{
		ValidationScore:      valscore.Scored(confidence, factors...),
		RelationshipStrength: strength,
		Monotonic:            monotonic,
		Violations:           violations,
		DynamicRangeAdequate: dynAdequate,
		Fitting:              fitting,
	}
}

// pairedMeans collapses the response matrix into one mean per
// concentration, dropping rows with no finite response, ordered by
// descending concentration.
func pairedMeans(concentrations []float64, responses [][]float64) ([]float64, []float64) {
	type pair struct {
		conc float64
		mean float64
	}
	var pairs []pair
	for i, c := range concentrations {
		if i >= len(responses) {
			break
		}
		finite := finiteValues(responses[i])
		if len(finite) == 0 || c <= 0 || math.IsNaN(c) {
			continue
		}
		pairs = append(pairs, pair{conc: c, mean: robust.Mean(finite)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].conc > pairs[j].conc })

	concs := make([]float64, len(pairs))
	means := make([]float64, len(pairs))
	for i, p := range pairs {
		concs[i] = p.conc
		means[i] = p.mean
	}
	return concs, means
}

// spearmanStrength is |rho| between concentration rank and response
// rank: a correlation-like strength robust to the sigmoid's shape.
func spearmanStrength(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 3 {
		return 0
	}
	rho := stat.Correlation(ranks(x), ranks(y), nil)
	if math.IsNaN(rho) {
		return 0
	}
	return math.Abs(rho)
}

// ranks assigns average ranks, ties sharing their mean rank.
func ranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// monotonicityViolations lists concentration indices (descending order)
// where the mean response moves against the dominant direction.
func monotonicityViolations(concs, means []float64) []int {
	if len(means) < 2 {
		return nil
	}

	// Dominant direction from the endpoints; flat reads as decreasing
	// response with decreasing dose (agonist convention).
	increasing := means[len(means)-1] > means[0]

	var violations []int
	for i := 0; i < len(means)-1; i++ {
		next, cur := means[i+1], means[i]
		if increasing && next < cur {
			violations = append(violations, i+1)
		}
		if !increasing && next > cur {
			violations = append(violations, i+1)
		}
	}
	return violations
}

func meanDynamicRange(means []float64) float64 {
	min, max := minMax(means)
	if min <= 0 || math.IsInf(min, 1) {
		return 0
	}
	return max / min
}

func boolBonus(b bool, bonus float64) float64 {
	if b {
		return bonus
	}
	return 0
}

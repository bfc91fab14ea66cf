package valscience

import (
	"math"

	"dosescan/domain/valscore"
	"dosescan/internal/robust"
)

// Response factor weights.
const (
	wCompleteness = 0.30
	wReplicates   = 0.25
	wOutliers     = 0.15
	wSignal       = 0.30
)

// validateResponses scores the response matrix: completeness, replicate
// consistency, outlier load and signal-to-noise. Missing cells are NaN.
func (v *Validator) validateResponses(responses [][]float64) valscore.ResponseValidation {
	if len(responses) == 0 {
		out := valscore.ResponseValidation{ValidationScore: valscore.Zero(), MissingPattern: "none"}
		return out
	}

	completeness, missingPattern := completenessProfile(responses)
	replicates := replicateVariation(responses)
	outlierCount, outlierFraction := responseOutliers(responses, v.tiers)
	signal := signalToNoise(responses)

	factors := []valscore.Factor{
		{Name: "completeness", Weight: wCompleteness, Score: completeness, Detail: missingPattern},
		{Name: "replicate_consistency", Weight: wReplicates, Score: replicateScore(replicates.Within)},
		{Name: "outliers", Weight: wOutliers, Score: robust.Clamp(1-outlierFraction*3, 0, 1)},
		{Name: "signal_to_noise", Weight: wSignal, Score: signalScore(signal.Quality), Detail: signal.Quality},
	}

	confidence := robust.Clamp(completeness, 0, 1)

	return valscore.ResponseValidation{
		ValidationScore: valscore.Scored(confidence, factors...),
		Completeness:    completeness,
		MissingPattern:  missingPattern,
		Replicates:      replicates,
		OutlierCount:    outlierCount,
		Signal:          signal,
	}
}

// completenessProfile measures the finite fraction and classifies how
// the missing cells are arranged.
func completenessProfile(responses [][]float64) (float64, string) {
	total, missing := 0, 0
	rowMissing := make([]int, len(responses))
	colMissing := map[int]int{}
	width := 0

	for i, row := range responses {
		if len(row) > width {
			width = len(row)
		}
		for j, val := range row {
			total++
			if math.IsNaN(val) || math.IsInf(val, 0) {
				missing++
				rowMissing[i]++
				colMissing[j]++
			}
		}
	}
	if total == 0 {
		return 0, "systematic"
	}
	completeness := 1 - float64(missing)/float64(total)
	if missing == 0 {
		return completeness, "none"
	}

	// A replicate column that is mostly holes points at a systematic
	// acquisition problem rather than scattered dropouts.
	for col := 0; col < width; col++ {
		if float64(colMissing[col]) > 0.5*float64(len(responses)) {
			return completeness, "systematic"
		}
	}

	// Missing cells concentrated in the trailing rows look like a
	// truncated plate read.
	tailStart := len(responses) * 2 / 3
	tailMissing := 0
	for i := tailStart; i < len(responses); i++ {
		tailMissing += rowMissing[i]
	}
	if tailMissing*2 > missing {
		return completeness, "truncated"
	}
	return completeness, "scattered"
}

// replicateVariation computes the mean within-row CV and the CV of the
// per-row means (between-concentration variation is expected; between
// here tracks replicate column agreement across the plate).
func replicateVariation(responses [][]float64) valscore.ReplicateCV {
	var rowCVs []float64
	var rowMeans []float64

	for _, row := range responses {
		finite := finiteValues(row)
		if len(finite) == 0 {
			continue
		}
		rowMeans = append(rowMeans, robust.Mean(finite))
		if len(finite) >= 2 {
			if cv := robust.CV(finite); !math.IsNaN(cv) {
				rowCVs = append(rowCVs, cv)
			}
		}
	}

	out := valscore.ReplicateCV{}
	if len(rowCVs) > 0 {
		out.Within = robust.Mean(rowCVs)
	}
	if len(rowMeans) >= 2 {
		if cv := robust.CV(rowMeans); !math.IsNaN(cv) {
			out.Between = cv
		}
	}
	return out
}

func replicateScore(withinCV float64) float64 {
	// CV under 10% is assay-grade; 50%+ is unusable.
	return robust.Clamp(1-withinCV*2, 0, 1)
}

func responseOutliers(responses [][]float64, tiers robust.Tiers) (count int, fraction float64) {
	var all []float64
	for _, row := range responses {
		all = append(all, finiteValues(row)...)
	}
	if len(all) < 4 {
		return 0, 0
	}
	flagged := robust.Outliers(all, tiers)
	return len(flagged), float64(len(flagged)) / float64(len(all))
}

// signalToNoise characterizes the dynamic range of mean response per
// concentration.
func signalToNoise(responses [][]float64) valscore.SignalToNoise {
	minMean, maxMean := math.Inf(1), math.Inf(-1)
	for _, row := range responses {
		finite := finiteValues(row)
		if len(finite) == 0 {
			continue
		}
		m := robust.Mean(finite)
		if m < minMean {
			minMean = m
		}
		if m > maxMean {
			maxMean = m
		}
	}
	if math.IsInf(minMean, 1) || minMean <= 0 {
		return valscore.SignalToNoise{Quality: "inadequate"}
	}

	ratio := maxMean / minMean
	quality := "inadequate"
	switch {
	case ratio >= 10:
		quality = "excellent"
	case ratio >= 5:
		quality = "good"
	case ratio >= 3:
		quality = "acceptable"
	case ratio >= 2:
		quality = "poor"
	}
	return valscore.SignalToNoise{DynamicRange: ratio, Quality: quality}
}

func signalScore(quality string) float64 {
	switch quality {
	case "excellent":
		return 1.0
	case "good":
		return 0.8
	case "acceptable":
		return 0.6
	case "poor":
		return 0.35
	default:
		return 0.1
	}
}

func finiteValues(row []float64) []float64 {
	out := make([]float64, 0, len(row))
	for _, v := range row {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

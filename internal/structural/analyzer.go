// Package structural locates the header row, maps concentration and
// response columns, and bounds the data region of a raw grid.
package structural

import (
	"math"
	"sort"
	"strings"

	"dosescan/domain/core"
	"dosescan/domain/structure"
	"dosescan/internal/robust"
)

// concentrationVocabulary drives header keyword scoring. Tokens of 4+
// characters carry more evidence than unit fragments and brackets.
var concentrationVocabulary = []string{
	"concentration", "conc", "dose", "dosage", "dilution", "titration", "molar",
	"nm", "um", "µm", "mm", "pm", "fm",
	"nmol", "umol", "µmol", "mmol",
	"[", "]", "(", ")",
}

const (
	longKeywordScore  = 8.0
	shortKeywordScore = 5.0
	numericRowPenalty = 5.0
	headerScoreCap    = 20.0
)

// Analyzer performs the structural pass over a raw grid.
type Analyzer struct {
	cfg core.DetectionConfig
}

// NewAnalyzer creates a structural analyzer with the given configuration.
func NewAnalyzer(cfg core.DetectionConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze runs header detection, column mapping, data-region bounding
// and layout classification. Unusable input yields the canonical
// zero-confidence result instead of an error.
func (a *Analyzer) Analyze(grid core.Grid) structure.StructuralAnalysis {
	if grid.IsEmpty() {
		return structure.Invalid("empty grid")
	}
	if grid.IsRagged() {
		return structure.Invalid("ragged rows")
	}

	header := a.detectHeader(grid)
	region := a.dataRegion(grid, header)
	columns := a.mapColumns(grid, header, region)
	layout := a.classifyLayout(grid, header, columns, region)

	confidence := 0.6*columns.Confidence + 0.4*header.Confidence
	if columns.ConcentrationColumn < 0 {
		confidence = robust.Clamp(confidence*0.5, 0, 1)
	}

	return structure.StructuralAnalysis{
		Header:     header,
		Columns:    columns,
		Region:     region,
		Layout:     layout,
		Confidence: robust.Clamp(confidence, 0, 1),
		Valid:      true,
	}
}

// detectHeader scans at most the first HeaderScanRows rows and scores
// each as a candidate header.
func (a *Analyzer) detectHeader(grid core.Grid) structure.HeaderCandidate {
	limit := a.cfg.HeaderScanRows
	if limit <= 0 || limit > grid.Rows() {
		limit = grid.Rows()
	}

	best := structure.NoHeader()
	for row := 0; row < limit; row++ {
		cand := a.scoreHeaderRow(grid[row], row)
		if cand.Score > best.Score {
			best = cand
		}
	}

	if best.Score <= 0 {
		return structure.NoHeader()
	}
	best.Confidence = math.Min(best.Score/headerScoreCap, 1)
	return best
}

func (a *Analyzer) scoreHeaderRow(row []core.Cell, rowIdx int) structure.HeaderCandidate {
	textCount, numericCount := 0, 0
	score := 0.0
	keywordHits := 0

	for _, cell := range row {
		switch {
		case cell.Kind == core.CellEmpty:
		case cell.IsNumeric():
			numericCount++
		default:
			textCount++
		}

		if cell.Kind == core.CellText {
			lower := strings.ToLower(cell.Text)
			for _, kw := range concentrationVocabulary {
				if strings.Contains(lower, kw) {
					keywordHits++
					if len(kw) >= 4 {
						score += longKeywordScore
					} else {
						score += shortKeywordScore
					}
				}
			}
		}
	}

	textRatio := 0.0
	if len(row) > 0 {
		textRatio = float64(textCount) / float64(len(row))
	}
	if textRatio > 0.5 {
		score += 10 * textRatio
	}

	// Earlier rows are more likely headers.
	score += math.Max(0, 5-float64(rowIdx)*0.5)

	if numericCount > textCount && numericCount > 2 {
		score -= numericRowPenalty
	}

	return structure.HeaderCandidate{
		Row:         rowIdx,
		Score:       score,
		TextRatio:   textRatio,
		KeywordHits: keywordHits,
	}
}

func (a *Analyzer) dataRegion(grid core.Grid, header structure.HeaderCandidate) structure.DataRegion {
	startRow := 0
	if header.Row >= 0 {
		startRow = header.Row + 1
	}
	region := structure.DataRegion{
		StartRow: startRow,
		EndRow:   grid.Rows(),
		StartCol: 0,
		EndCol:   grid.Cols(),
	}

	total, filled := 0, 0
	for r := region.StartRow; r < region.EndRow; r++ {
		for c := region.StartCol; c < region.EndCol; c++ {
			total++
			if grid.Cell(r, c).Kind != core.CellEmpty {
				filled++
			}
		}
	}
	if total > 0 {
		region.Completeness = float64(filled) / float64(total)
	}
	return region
}

type columnScore struct {
	col      int
	keyword  float64
	pattern  float64
	combined float64
	numeric  int
}

// mapColumns selects the concentration column by combining header
// keyword evidence with a quick dilution-pattern score over the data,
// then classifies the rest as response or metadata columns.
func (a *Analyzer) mapColumns(grid core.Grid, header structure.HeaderCandidate, region structure.DataRegion) structure.ColumnMapping {
	mapping := structure.ColumnMapping{ConcentrationColumn: -1}
	cols := grid.Cols()
	if cols == 0 || region.RowCount() == 0 {
		return mapping
	}

	scores := make([]columnScore, 0, cols)
	for col := 0; col < cols; col++ {
		sc := columnScore{col: col}
		if header.Row >= 0 {
			sc.keyword = a.keywordEvidence(grid.Cell(header.Row, col))
		}
		values := numericColumn(grid, col, region)
		sc.numeric = len(values)
		sc.pattern = a.quickPatternScore(values)
		sc.combined = sc.keyword + sc.pattern
		scores = append(scores, sc)
	}

	// Highest combined wins; ties favor keyword evidence.
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].combined != scores[j].combined {
			return scores[i].combined > scores[j].combined
		}
		return scores[i].keyword > scores[j].keyword
	})

	best := scores[0]
	if best.combined > 0 && best.numeric >= 3 {
		mapping.ConcentrationColumn = best.col
		mapping.Confidence = robust.Clamp(best.combined/15, 0, 1)
	}

	for col := 0; col < cols; col++ {
		if col == mapping.ConcentrationColumn {
			continue
		}
		numericRatio, textRatio := a.sampleColumn(grid, col, region)
		switch {
		case numericRatio > 0.7:
			mapping.ResponseColumns = append(mapping.ResponseColumns, col)
		case textRatio > 0.5:
			mapping.MetadataColumns = append(mapping.MetadataColumns, col)
		}
	}

	return mapping
}

func (a *Analyzer) keywordEvidence(cell core.Cell) float64 {
	if cell.Kind != core.CellText {
		return 0
	}
	lower := strings.ToLower(cell.Text)
	score := 0.0
	for _, kw := range concentrationVocabulary {
		if strings.Contains(lower, kw) {
			if len(kw) >= 4 {
				score += longKeywordScore
			} else {
				score += shortKeywordScore
			}
		}
	}
	return score
}

// quickPatternScore rewards columns whose sorted values form a
// consistent ratio series, with a bonus when the mean ratio sits near a
// canonical dilution factor.
func (a *Analyzer) quickPatternScore(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var ratios []float64
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i+1] <= 0 {
			continue
		}
		r := sorted[i] / sorted[i+1]
		if r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r) {
			ratios = append(ratios, r)
		}
	}
	if len(ratios) < 2 {
		return 0
	}

	cv := robust.CV(ratios)
	if math.IsNaN(cv) {
		return 0
	}
	score := math.Max(0, 1-cv) * 10

	mean := robust.Mean(ratios)
	for _, f := range a.cfg.Factors() {
		if math.Abs(mean-f)/f <= 0.20 {
			score += 5
			break
		}
	}
	return score
}

func (a *Analyzer) sampleColumn(grid core.Grid, col int, region structure.DataRegion) (numericRatio, textRatio float64) {
	limit := a.cfg.SampleRows
	if limit <= 0 {
		limit = 10
	}
	sampled, numeric, text := 0, 0, 0
	for r := region.StartRow; r < region.EndRow && sampled < limit; r++ {
		cell := grid.Cell(r, col)
		if cell.Kind == core.CellEmpty {
			continue
		}
		sampled++
		if cell.IsNumeric() {
			numeric++
		} else {
			text++
		}
	}
	if sampled == 0 {
		return 0, 0
	}
	return float64(numeric) / float64(sampled), float64(text) / float64(sampled)
}

// classifyLayout is a coarse topology heuristic.
func (a *Analyzer) classifyLayout(grid core.Grid, header structure.HeaderCandidate, columns structure.ColumnMapping, region structure.DataRegion) structure.LayoutKind {
	if a.hasInteriorBlankRow(grid, region) {
		return structure.LayoutMultiBlock
	}
	if columns.ConcentrationColumn >= 0 {
		return structure.LayoutStandard
	}
	if grid.Cols() > grid.Rows() && a.rowLooksLikeSeries(grid) {
		return structure.LayoutTransposed
	}
	return structure.LayoutComplex
}

func (a *Analyzer) hasInteriorBlankRow(grid core.Grid, region structure.DataRegion) bool {
	sawData := false
	blankRun := false
	for r := region.StartRow; r < region.EndRow; r++ {
		blank := true
		for c := region.StartCol; c < region.EndCol; c++ {
			if grid.Cell(r, c).Kind != core.CellEmpty {
				blank = false
				break
			}
		}
		if blank {
			blankRun = sawData
			continue
		}
		if blankRun {
			return true
		}
		sawData = true
	}
	return false
}

func (a *Analyzer) rowLooksLikeSeries(grid core.Grid) bool {
	for r := 0; r < grid.Rows(); r++ {
		var values []float64
		for _, cell := range grid[r] {
			if v, ok := cell.AsNumber(); ok {
				values = append(values, v)
			}
		}
		if a.quickPatternScore(values) > 8 {
			return true
		}
	}
	return false
}

func numericColumn(grid core.Grid, col int, region structure.DataRegion) []float64 {
	var out []float64
	for r := region.StartRow; r < region.EndRow; r++ {
		if v, ok := grid.Cell(r, col).AsNumber(); ok && v > 0 && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

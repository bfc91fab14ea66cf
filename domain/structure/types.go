package structure

// LayoutKind is the coarse topology of the detected grid layout.
type LayoutKind string

const (
	LayoutStandard   LayoutKind = "standard"    // Header row, concentrations down one column
	LayoutTransposed LayoutKind = "transposed"  // Series runs across a row
	LayoutMultiBlock LayoutKind = "multi-block" // Blank-row separated blocks
	LayoutComplex    LayoutKind = "complex"     // Nothing recognizable
)

// HeaderCandidate is one scored candidate header row.
type HeaderCandidate struct {
	Row         int     `json:"row"` // -1 when no header was found
	Score       float64 `json:"score"`
	TextRatio   float64 `json:"text_ratio"`
	KeywordHits int     `json:"keyword_hits"`
	Confidence  float64 `json:"confidence"` // min(score/20, 1)
}

// NoHeader is the canonical headerless marker.
func NoHeader() HeaderCandidate {
	return HeaderCandidate{Row: -1}
}

// ColumnMapping assigns roles to grid columns.
// INVARIANT: ConcentrationColumn never appears in ResponseColumns.
type ColumnMapping struct {
	ConcentrationColumn int     `json:"concentration_column"` // -1 when not found
	ResponseColumns     []int   `json:"response_columns"`
	MetadataColumns     []int   `json:"metadata_columns"`
	Confidence          float64 `json:"confidence"`
}

// DataRegion bounds the rectangular data area below the header.
type DataRegion struct {
	StartRow     int     `json:"start_row"`
	EndRow       int     `json:"end_row"` // Exclusive
	StartCol     int     `json:"start_col"`
	EndCol       int     `json:"end_col"` // Exclusive
	Completeness float64 `json:"completeness"`
}

// RowCount returns the number of data rows in the region.
func (r DataRegion) RowCount() int {
	if r.EndRow <= r.StartRow {
		return 0
	}
	return r.EndRow - r.StartRow
}

// StructuralAnalysis is the full output of the structural pass.
type StructuralAnalysis struct {
	Header     HeaderCandidate `json:"header"`
	Columns    ColumnMapping   `json:"columns"`
	Region     DataRegion      `json:"region"`
	Layout     LayoutKind      `json:"layout"`
	Confidence float64         `json:"confidence"`
	Valid      bool            `json:"valid"`
	Diagnostic string          `json:"diagnostic,omitempty"`
}

// Invalid is the canonical zero-confidence result for unusable input.
// Downstream components receive it instead of an error so composition
// never needs nil checks.
func Invalid(diagnostic string) StructuralAnalysis {
	return StructuralAnalysis{
		Header:     NoHeader(),
		Columns:    ColumnMapping{ConcentrationColumn: -1},
		Layout:     LayoutComplex,
		Diagnostic: diagnostic,
	}
}

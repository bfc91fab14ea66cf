package core

import (
	"math"
	"strconv"
	"strings"
)

// CellKind discriminates the heterogeneous spreadsheet cell union.
type CellKind string

const (
	CellNumber CellKind = "number"
	CellText   CellKind = "text"
	CellEmpty  CellKind = "empty"
)

// Cell is one spreadsheet cell: a number, a text fragment, or nothing.
// Parsing functions pattern-match over Kind; there is no "any" escape hatch.
type Cell struct {
	Kind   CellKind `json:"kind"`
	Number float64  `json:"number,omitempty"`
	Text   string   `json:"text,omitempty"`
}

func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// CellFrom coerces an arbitrary extracted value into the cell union.
// nil and blank strings become Empty; numeric strings stay Text so the
// unit-aware parser owns all string-to-number decisions downstream.
func CellFrom(v interface{}) Cell {
	switch x := v.(type) {
	case nil:
		return EmptyCell()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return EmptyCell()
		}
		return NumberCell(x)
	case float32:
		return CellFrom(float64(x))
	case int:
		return NumberCell(float64(x))
	case int64:
		return NumberCell(float64(x))
	case string:
		trimmed := strings.TrimSpace(x)
		if trimmed == "" {
			return EmptyCell()
		}
		return TextCell(trimmed)
	default:
		return EmptyCell()
	}
}

// IsNumeric reports whether the cell carries a usable number, either
// natively or as a bare numeric string.
func (c Cell) IsNumeric() bool {
	switch c.Kind {
	case CellNumber:
		return true
	case CellText:
		_, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		return err == nil
	default:
		return false
	}
}

// AsNumber returns the numeric value of the cell if it has one.
func (c Cell) AsNumber() (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Number, true
	case CellText:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// IsText reports whether the cell is non-numeric text.
func (c Cell) IsText() bool {
	return c.Kind == CellText && !c.IsNumeric()
}

// String returns the raw textual rendering of the cell.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'g', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Grid is the immutable raw input: ordered rows of heterogeneous cells.
// Analyses never mutate a grid; they derive locally-owned slices.
type Grid [][]Cell

// GridFrom builds a grid from raw extracted values (number | string | nil).
func GridFrom(rows [][]interface{}) Grid {
	g := make(Grid, len(rows))
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = CellFrom(v)
		}
		g[i] = cells
	}
	return g
}

// GridFromStrings builds a grid from already-stringified rows (csv, xlsx).
func GridFromStrings(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, s := range row {
			trimmed := strings.TrimSpace(s)
			if trimmed == "" {
				cells[j] = EmptyCell()
				continue
			}
			if v, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				cells[j] = NumberCell(v)
				continue
			}
			cells[j] = TextCell(trimmed)
		}
		g[i] = cells
	}
	return g
}

// Rows returns the row count.
func (g Grid) Rows() int { return len(g) }

// Cols returns the widest row length.
func (g Grid) Cols() int {
	widest := 0
	for _, row := range g {
		if len(row) > widest {
			widest = len(row)
		}
	}
	return widest
}

// IsEmpty reports whether the grid has no cells at all.
func (g Grid) IsEmpty() bool {
	for _, row := range g {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

// IsRagged reports whether rows differ in length.
func (g Grid) IsRagged() bool {
	if len(g) < 2 {
		return false
	}
	width := len(g[0])
	for _, row := range g[1:] {
		if len(row) != width {
			return true
		}
	}
	return false
}

// Cell returns the cell at (row, col), or Empty when out of bounds.
func (g Grid) Cell(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return EmptyCell()
	}
	return g[row][col]
}

// Column extracts one column across the given row span (inclusive start,
// exclusive end). Out-of-bounds cells come back Empty.
func (g Grid) Column(col, startRow, endRow int) []Cell {
	if startRow < 0 {
		startRow = 0
	}
	if endRow > len(g) {
		endRow = len(g)
	}
	if startRow >= endRow {
		return nil
	}
	out := make([]Cell, 0, endRow-startRow)
	for r := startRow; r < endRow; r++ {
		out = append(out, g.Cell(r, col))
	}
	return out
}

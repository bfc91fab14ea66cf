package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellFrom(t *testing.T) {
	assert.Equal(t, CellEmpty, CellFrom(nil).Kind)
	assert.Equal(t, CellEmpty, CellFrom("   ").Kind)
	assert.Equal(t, CellEmpty, CellFrom(math.NaN()).Kind)
	assert.Equal(t, NumberCell(1.5), CellFrom(1.5))
	assert.Equal(t, NumberCell(3), CellFrom(3))

	// Numeric strings stay text; the unit-aware parser decides downstream.
	cell := CellFrom("100 nM")
	assert.Equal(t, CellText, cell.Kind)
	assert.Equal(t, "100 nM", cell.Text)
}

func TestCellAsNumber(t *testing.T) {
	v, ok := NumberCell(42).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	v, ok = TextCell(" 3.5 ").AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)

	_, ok = TextCell("100 nM").AsNumber()
	assert.False(t, ok)
	_, ok = EmptyCell().AsNumber()
	assert.False(t, ok)
}

func TestCellIsText(t *testing.T) {
	assert.True(t, TextCell("Concentration").IsText())
	assert.False(t, TextCell("100").IsText(), "numeric strings are not text for classification purposes")
	assert.False(t, NumberCell(1).IsText())
}

func TestGridFromStrings(t *testing.T) {
	grid := GridFromStrings([][]string{
		{"Concentration", "Response"},
		{"1000", ""},
		{"abc", "0.5"},
	})

	assert.Equal(t, CellText, grid.Cell(0, 0).Kind)
	assert.Equal(t, NumberCell(1000), grid.Cell(1, 0))
	assert.Equal(t, CellEmpty, grid.Cell(1, 1).Kind)
	assert.Equal(t, TextCell("abc"), grid.Cell(2, 0))
}

func TestGridShape(t *testing.T) {
	grid := Grid{
		{NumberCell(1), NumberCell(2)},
		{NumberCell(3)},
	}
	assert.True(t, grid.IsRagged())
	assert.Equal(t, 2, grid.Rows())
	assert.Equal(t, 2, grid.Cols())

	uniform := GridFromStrings([][]string{{"1", "2"}, {"3", "4"}})
	assert.False(t, uniform.IsRagged())
	assert.False(t, uniform.IsEmpty())
	assert.True(t, Grid{}.IsEmpty())
	assert.True(t, Grid{{}}.IsEmpty())
}

func TestGridCellOutOfBounds(t *testing.T) {
	grid := GridFromStrings([][]string{{"1"}})
	assert.Equal(t, CellEmpty, grid.Cell(5, 5).Kind)
	assert.Equal(t, CellEmpty, grid.Cell(-1, 0).Kind)
}

func TestGridColumn(t *testing.T) {
	grid := GridFromStrings([][]string{
		{"header"},
		{"1000"},
		{"100"},
		{"10"},
	})

	col := grid.Column(0, 1, 4)
	assert.Len(t, col, 3)
	assert.Equal(t, NumberCell(1000), col[0])

	assert.Nil(t, grid.Column(0, 3, 3))
	assert.Len(t, grid.Column(0, 0, 100), 4, "end row clamps to the grid")
}

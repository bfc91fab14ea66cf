package ports

import "dosescan/domain/core"

// Quantity is a parsed concentration with its source unit.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// ConcentrationParser converts one raw cell into a validated quantity
// and normalizes quantities to the canonical unit (nM). Parse reports
// failure through ok rather than error so callers can count drops
// toward completeness without branching on error taxonomies.
type ConcentrationParser interface {
	Parse(cell core.Cell) (q Quantity, ok bool)
	Normalize(q Quantity) (float64, error)
	CanonicalUnit() string
}

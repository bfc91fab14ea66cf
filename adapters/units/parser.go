// Package units implements the unit-aware concentration parser
// collaborator: raw cell in, validated (value, unit) out, with
// normalization to the canonical unit (nM).
package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"dosescan/domain/core"
	"dosescan/ports"
)

// CanonicalUnit is the unit every concentration normalizes to.
const CanonicalUnit = "nM"

// nmFactors maps recognized molar units to their nM multiplier.
var nmFactors = map[string]float64{
	"fm": 1e-6,
	"pm": 1e-3,
	"nm": 1,
	"um": 1e3,
	"µm": 1e3,
	"μm": 1e3,
	"mm": 1e6,
	"m":  1e9,

	"fmol/l": 1e-6,
	"pmol/l": 1e-3,
	"nmol/l": 1,
	"umol/l": 1e3,
	"µmol/l": 1e3,
	"mmol/l": 1e6,
	"mol/l":  1e9,
}

// quantityPattern accepts "100", "100nM", "1.5 uM", "1e-3 M".
var quantityPattern = regexp.MustCompile(`^([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s*([a-zA-Zµμ/]*)$`)

// Parser is the default ports.ConcentrationParser.
type Parser struct{}

// NewParser creates the default unit-aware parser.
func NewParser() *Parser {
	return &Parser{}
}

var _ ports.ConcentrationParser = (*Parser)(nil)

// Parse pattern-matches over the cell union. Bare numbers are taken as
// already-canonical nM; text must be a number with an optional
// recognized unit token. Failure is reported through ok.
func (p *Parser) Parse(cell core.Cell) (ports.Quantity, bool) {
	switch cell.Kind {
	case core.CellNumber:
		if math.IsNaN(cell.Number) || math.IsInf(cell.Number, 0) {
			return ports.Quantity{}, false
		}
		return ports.Quantity{Value: cell.Number, Unit: CanonicalUnit}, true

	case core.CellText:
		return p.parseText(cell.Text)

	default:
		return ports.Quantity{}, false
	}
}

func (p *Parser) parseText(raw string) (ports.Quantity, bool) {
	trimmed := strings.TrimSpace(raw)
	m := quantityPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return ports.Quantity{}, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return ports.Quantity{}, false
	}

	unit := strings.ToLower(strings.TrimSpace(m[2]))
	if unit == "" {
		return ports.Quantity{Value: value, Unit: CanonicalUnit}, true
	}
	if _, ok := nmFactors[unit]; !ok {
		return ports.Quantity{}, false
	}
	return ports.Quantity{Value: value, Unit: normalizeUnitName(unit)}, true
}

// Normalize converts a parsed quantity to nM.
func (p *Parser) Normalize(q ports.Quantity) (float64, error) {
	unit := strings.ToLower(strings.TrimSpace(q.Unit))
	if unit == "" {
		return q.Value, nil
	}
	factor, ok := nmFactors[unit]
	if !ok {
		return 0, core.NewUnitError(q.Unit)
	}
	return q.Value * factor, nil
}

// CanonicalUnit names the normalization target.
func (p *Parser) CanonicalUnit() string {
	return CanonicalUnit
}

// normalizeUnitName maps unit spellings onto a display form (µM and μM
// collapse to uM so unit-consistency counting is not confused by
// unicode variants).
func normalizeUnitName(lower string) string {
	switch lower {
	case "fm", "fmol/l":
		return "fM"
	case "pm", "pmol/l":
		return "pM"
	case "nm", "nmol/l":
		return "nM"
	case "um", "µm", "μm", "umol/l", "µmol/l":
		return "uM"
	case "mm", "mmol/l":
		return "mM"
	case "m", "mol/l":
		return "M"
	default:
		return lower
	}
}

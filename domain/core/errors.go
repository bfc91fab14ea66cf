package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrEmptyGrid        = errors.New("empty grid")
	ErrRaggedGrid       = errors.New("ragged grid rows")
	ErrNoNumericData    = errors.New("no numeric data found")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrMismatchedInput  = errors.New("mismatched concentration/response lengths")

	// Parse errors
	ErrUnparseable     = errors.New("value cannot be parsed as concentration")
	ErrUnknownUnit     = errors.New("unknown concentration unit")
	ErrNonPositive     = errors.New("concentration must be positive and finite")
	ErrNoConcentration = errors.New("no concentration column detected")

	// Collaborator errors
	ErrDetectorTimeout     = errors.New("adaptive detector timed out")
	ErrDetectorUnavailable = errors.New("adaptive detector unavailable")
)

// Error constructors with context
func NewParseError(raw string, err error) error {
	return fmt.Errorf("%w: %q: %v", ErrUnparseable, raw, err)
}

func NewUnitError(unit string) error {
	return fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
}

func NewInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrEmptyGrid, reason)
}

// Error checking helpers
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyGrid) || errors.Is(err, ErrRaggedGrid) || errors.Is(err, ErrNoNumericData)
}

func IsParseError(err error) bool {
	return errors.Is(err, ErrUnparseable) || errors.Is(err, ErrUnknownUnit) || errors.Is(err, ErrNonPositive)
}

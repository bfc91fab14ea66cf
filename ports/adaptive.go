package ports

import (
	"context"

	"dosescan/domain/dilution"
)

// AdaptiveDetector is the externally-supplied pattern detection
// collaborator. Given a plain ordered concentration sequence it returns
// ranked pattern candidates; it may run remotely, may be slow, and may
// return an empty list. The pipeline treats its absence or timeout as
// degradation, never failure.
type AdaptiveDetector interface {
	DetectPatterns(ctx context.Context, concentrations []float64) ([]dilution.PatternCandidate, error)
}

package taxonomy

import "github.com/loabridge/bridge/internal/types"

// Weights maps a Finding's severity to the score it contributes to an
// iteration's convergence trajectory. VISION and SPECULATION default
// to zero: they are captured for the vision registry, not addressed,
// so they never move the flatline predicate.
type Weights map[types.Severity]float64

// DefaultWeights matches embedded/config/default.yaml's
// taxonomy_weights section.
var DefaultWeights = Weights{
	types.SeverityBlocker:     5,
	types.SeverityDisputed:    3,
	types.SeverityVision:      0,
	types.SeveritySpeculation: 0,
	types.SeverityInfo:        1,
}

// Score sums w[f.Severity] over findings, treating an unrecognized
// severity as zero rather than panicking on a malformed Finding.
func (w Weights) Score(findings []types.Finding) float64 {
	var total float64
	for _, f := range findings {
		total += w[f.Severity]
	}
	return total
}

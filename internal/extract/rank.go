package extract

import (
	"math"

	"github.com/hyperifyio/damlevel/internal/units"
)

// ReferenceLevel is a typical level in meters for the tracked reservoir. When
// no candidate carries a meter label, the one closest to it is taken, which
// rejects capacity or gauge-maximum figures sharing the row.
const ReferenceLevel = 80.0

// Rank picks the best candidate: the first one explicitly labeled in meters,
// otherwise the one nearest ReferenceLevel, earliest on ties. cands must not
// be empty.
func Rank(cands []Candidate) Candidate {
	for _, c := range cands {
		if units.Classify(c.Unit) == units.Meters {
			return c
		}
	}
	best := cands[0]
	bestDiff := math.Abs(best.Meters - ReferenceLevel)
	for _, c := range cands[1:] {
		if d := math.Abs(c.Meters - ReferenceLevel); d < bestDiff {
			best, bestDiff = c, d
		}
	}
	return best
}

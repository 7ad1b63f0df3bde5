package units

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// FeetToMeters is the exact international foot.
	FeetToMeters = 0.3048

	// FeetThreshold is the largest unlabeled value still read as meters.
	// Reservoir levels above ~300 m are implausible for the tracked dam, so a
	// larger unlabeled number is assumed to be a feet reading.
	FeetThreshold = 300.0
)

// ErrParse is wrapped by Normalize when the raw value is not a number.
var ErrParse = errors.New("parse numeric value")

// Unit is the length unit a token denotes.
type Unit int

const (
	Unknown Unit = iota
	Meters
	Feet
)

func (u Unit) String() string {
	switch u {
	case Meters:
		return "m"
	case Feet:
		return "ft"
	default:
		return ""
	}
}

// Classify maps a unit token such as "ft", "Meters" or "m" to a Unit.
// Feet tokens win over meter tokens.
func Classify(token string) Unit {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return Unknown
	}
	if strings.Contains(t, "ft") || strings.Contains(t, "feet") || strings.Contains(t, "foot") {
		return Feet
	}
	if strings.HasPrefix(t, "m") {
		return Meters
	}
	return Unknown
}

// Normalize converts raw (a decimal string) to meters using unitHint when it
// names a unit, and the magnitude heuristic otherwise.
func Normalize(raw string, unitHint string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrParse, raw, err)
	}
	return ToMeters(v, Classify(unitHint)), nil
}

// ToMeters applies the unit rules to an already parsed value.
func ToMeters(v float64, u Unit) float64 {
	switch u {
	case Feet:
		return v * FeetToMeters
	case Meters:
		return v
	}
	if v > FeetThreshold {
		return v * FeetToMeters
	}
	return v
}

package series

import (
	"math"

	"cloud.google.com/go/civil"
)

// Observation is one day's reservoir level in meters.
type Observation struct {
	Date  civil.Date `json:"date"`
	Level float64    `json:"level"`
}

// Series is ordered by date ascending with at most one entry per date.
type Series []Observation

// Precision is the number of fractional digits kept for stored levels.
const Precision = 3

// Round rounds v to Precision fractional digits.
func Round(v float64) float64 {
	p := math.Pow10(Precision)
	return math.Round(v*p) / p
}

// Merge adds obs to s. A rerun on the date of the last entry overwrites that
// entry instead of appending. When the result is longer than maxWindow the
// oldest entries are dropped; maxWindow <= 0 keeps everything. The returned
// series may share storage with s.
func Merge(s Series, obs Observation, maxWindow int) Series {
	obs.Level = Round(obs.Level)
	if n := len(s); n > 0 && s[n-1].Date == obs.Date {
		s[n-1].Level = obs.Level
	} else {
		s = append(s, obs)
	}
	if maxWindow > 0 && len(s) > maxWindow {
		s = s[len(s)-maxWindow:]
	}
	return s
}

// Last returns the most recent observation.
func (s Series) Last() (Observation, bool) {
	if len(s) == 0 {
		return Observation{}, false
	}
	return s[len(s)-1], true
}

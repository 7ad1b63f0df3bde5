package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/damlevel/internal/units"
)

const (
	numberPattern = `-?\d+(?:\.\d+)?`
	// Longest tokens first: RE2 alternation is leftmost-first.
	unitPattern = `meters|meter|metres|metre|feet|foot|ft|m`

	// patternGap bounds the non-digit characters allowed between the keyword
	// and its number in the flat-text pattern.
	patternGap = 40
	// proximityWindow is how many characters after the keyword the last
	// resort scan looks at.
	proximityWindow = 200
)

var (
	numberWithUnit = regexp.MustCompile(`(?i)(` + numberPattern + `)(?:\s*(` + unitPattern + `)\b)?`)
	bareNumber     = regexp.MustCompile(numberPattern)
)

// Candidate is one number pulled from the page, already converted to meters.
type Candidate struct {
	Raw      string
	Unit     string
	Meters   float64
	Fragment string
}

func newCandidate(raw, unit, fragment string) (Candidate, bool) {
	m, err := units.Normalize(raw, unit)
	if err != nil {
		log.Debug().Err(err).Str("fragment", fragment).Msg("dropping candidate")
		return Candidate{}, false
	}
	return Candidate{Raw: raw, Unit: unit, Meters: m, Fragment: fragment}, true
}

// CellCandidates returns every number (with its optional unit) found in cell,
// in order of appearance.
func CellCandidates(cell string) []Candidate {
	var out []Candidate
	for _, m := range numberWithUnit.FindAllStringSubmatch(cell, -1) {
		if c, ok := newCandidate(m[1], m[2], cell); ok {
			out = append(out, c)
		}
	}
	return out
}

// FindByKeyword selects the first table row whose text contains keyword
// (case-insensitive) and returns the candidates found in its cells. It reports
// false when no row matches or the matching row holds no numbers.
func FindByKeyword(doc *goquery.Document, keyword string) ([]Candidate, bool) {
	needle := strings.ToLower(keyword)
	var row *goquery.Selection
	doc.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(selectionText(tr)), needle) {
			row = tr
			return false
		}
		return true
	})
	if row == nil {
		return nil, false
	}
	var cands []Candidate
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cands = append(cands, CellCandidates(selectionText(cell))...)
	})
	return cands, len(cands) > 0
}

// FindByPattern matches keyword followed by at most 40 non-digit characters
// and a number with an optional unit.
func FindByPattern(text, keyword string) (Candidate, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(keyword) +
		`[^\d\n\r]{0,` + strconv.Itoa(patternGap) + `}(` + numberPattern + `)(?:\s*(` + unitPattern + `)\b)?`)
	if err != nil {
		return Candidate{}, false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return Candidate{}, false
	}
	return newCandidate(m[1], m[2], m[0])
}

// FindByProximity returns the first bare number within 200 characters of the
// first occurrence of keyword. The unit is always unknown.
func FindByProximity(text, keyword string) (Candidate, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(keyword))
	if err != nil {
		return Candidate{}, false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return Candidate{}, false
	}
	window := truncateRunes(text[loc[0]:], proximityWindow)
	raw := bareNumber.FindString(window)
	if raw == "" {
		return Candidate{}, false
	}
	return newCandidate(raw, "", window)
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

package extract

import (
	"errors"

	"github.com/rs/zerolog/log"
)

// ErrLevelNotFound is returned when no extraction stage produced a number.
var ErrLevelNotFound = errors.New("could not parse level")

// Stage identifies which extraction strategy produced a result. Later stages
// are weaker evidence and only run when every earlier stage found nothing.
type Stage int

const (
	StageStructured Stage = iota + 1
	StageFlatText
	StageProximity
)

func (s Stage) String() string {
	switch s {
	case StageStructured:
		return "structured"
	case StageFlatText:
		return "flat_text"
	case StageProximity:
		return "proximity"
	default:
		return "none"
	}
}

// Result is a successful extraction. Level is in meters.
type Result struct {
	Level    float64
	Raw      string
	Unit     string
	Stage    Stage
	Fragment string
}

// Level runs the table-row, flat-text and proximity stages in order and
// returns the first success.
func Level(doc *Document, keyword string) (Result, error) {
	if cands, ok := FindByKeyword(doc.Tree, keyword); ok {
		log.Debug().Int("candidates", len(cands)).Msg("keyword row found")
		return newResult(Rank(cands), StageStructured), nil
	}
	log.Debug().Str("keyword", keyword).Msg("no table row with numbers; trying flat text")
	if c, ok := FindByPattern(doc.Text, keyword); ok {
		return newResult(c, StageFlatText), nil
	}
	if c, ok := FindByProximity(doc.Text, keyword); ok {
		return newResult(c, StageProximity), nil
	}
	return Result{}, ErrLevelNotFound
}

func newResult(c Candidate, stage Stage) Result {
	return Result{Level: c.Meters, Raw: c.Raw, Unit: c.Unit, Stage: stage, Fragment: c.Fragment}
}

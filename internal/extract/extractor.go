package extract

// Extractor turns a fetched page body into a reservoir level.
type Extractor interface {
	Extract(input []byte) (Result, error)
}

// KeywordExtractor parses HTML and runs Level for a fixed keyword.
type KeywordExtractor struct {
	Keyword string
}

func (e KeywordExtractor) Extract(input []byte) (Result, error) {
	doc, err := FromHTML(input)
	if err != nil {
		return Result{}, err
	}
	return Level(doc, e.Keyword)
}

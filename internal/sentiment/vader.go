package sentiment

import (
	"fmt"
	"strings"

	"github.com/jonreiter/govader"
)

// Analyzer names accepted by NewScorer.
const (
	AnalyzerVader   = "vader"
	AnalyzerLexicon = "lexicon"
)

// Vader scores text with the VADER analyser and its stock lexicon.
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader loads the VADER lexicon. Entries in overrides replace or extend it.
func NewVader(overrides map[string]float64) *Vader {
	analyzer := govader.NewSentimentIntensityAnalyzer()
	for word, v := range overrides {
		analyzer.Lexicon[strings.ToLower(word)] = v
	}
	return &Vader{analyzer: analyzer}
}

// Score returns the VADER compound score of text.
func (v *Vader) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return v.analyzer.PolarityScores(text).Compound
}

// NewScorer picks an analyser by name; empty selects VADER.
func NewScorer(name string, overrides map[string]float64) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AnalyzerVader:
		return NewVader(overrides), nil
	case AnalyzerLexicon:
		return NewLexicon(overrides), nil
	default:
		return nil, fmt.Errorf("unknown sentiment analyzer %q", name)
	}
}

var _ Scorer = (*Vader)(nil)

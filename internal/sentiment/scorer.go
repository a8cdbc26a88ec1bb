package sentiment

import (
	"math"
	"strings"
	"unicode"
)

// Scorer assigns a compound polarity in [-1, 1] to a piece of text. Scores
// must be deterministic for identical input.
type Scorer interface {
	Score(text string) float64
}

// Rule constants of the lexicon analyser.
const (
	normAlpha       = 15.0
	negationScalar  = -0.74
	boosterStep     = 0.293
	capsEmphasis    = 0.733
	exclaimStep     = 0.292
	maxExclaims     = 4
	questionStep    = 0.18
	maxQuestions    = 3
	beforeButWeight = 0.5
	afterButWeight  = 1.5
)

// preceding-word decay for boosters and negation reach.
var reachDecay = [3]float64{1.0, 0.95, 0.9}

// Lexicon is a rule-based valence analyser: word valences on a -4..4 scale,
// adjusted for negation, degree modifiers, contrast, capitalisation and
// exclamation, then squashed into [-1, 1].
type Lexicon struct {
	valence map[string]float64
}

// NewLexicon returns the default analyser. Entries in overrides replace or
// extend the built-in word list.
func NewLexicon(overrides map[string]float64) *Lexicon {
	valence := make(map[string]float64, len(baseLexicon)+len(overrides))
	for word, v := range baseLexicon {
		valence[word] = v
	}
	for word, v := range overrides {
		valence[strings.ToLower(word)] = v
	}
	return &Lexicon{valence: valence}
}

// Score returns the compound polarity of text.
func (l *Lexicon) Score(text string) float64 {
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	shouting := mixedCase(words)
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}

	valences := make([]float64, len(words))
	for i, word := range lower {
		if _, ok := boosters[word]; ok {
			continue
		}
		v, ok := l.valence[word]
		if !ok {
			continue
		}

		if shouting && isUpper(words[i]) {
			v += math.Copysign(capsEmphasis, v)
		}

		for back := 1; back <= len(reachDecay) && i-back >= 0; back++ {
			prev := lower[i-back]
			if b, ok := boosters[prev]; ok {
				v += boost(v, b*reachDecay[back-1])
			}
			if isNegation(prev) {
				v *= negationScalar
			}
		}
		valences[i] = v
	}

	if pivot := indexOf(lower, "but"); pivot >= 0 {
		for i := range valences {
			switch {
			case i < pivot:
				valences[i] *= beforeButWeight
			case i > pivot:
				valences[i] *= afterButWeight
			}
		}
	}

	sum := 0.0
	for _, v := range valences {
		sum += v
	}
	if sum == 0 {
		return 0
	}
	sum += math.Copysign(punctuationEmphasis(text), sum)

	return normalize(sum)
}

// boost mirrors step for negative valences, so dampeners pull either sign
// toward zero and intensifiers push it away.
func boost(valence, step float64) float64 {
	if valence < 0 {
		return -step
	}
	return step
}

func normalize(sum float64) float64 {
	score := sum / math.Sqrt(sum*sum+normAlpha)
	return math.Max(-1, math.Min(1, score))
}

func punctuationEmphasis(text string) float64 {
	exclaims := min(strings.Count(text, "!"), maxExclaims)
	emphasis := float64(exclaims) * exclaimStep

	if questions := strings.Count(text, "?"); questions > 1 {
		emphasis += float64(min(questions, maxQuestions)) * questionStep
	}
	return emphasis
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	words := fields[:0]
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		w = strings.Trim(w, "'")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// mixedCase reports whether some but not all words are fully upper-case, the
// condition under which upper-case words read as emphasis.
func mixedCase(words []string) bool {
	upper := 0
	for _, w := range words {
		if isUpper(w) {
			upper++
		}
	}
	return upper > 0 && upper < len(words)
}

func isUpper(word string) bool {
	letters := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func isNegation(word string) bool {
	if _, ok := negations[word]; ok {
		return true
	}
	return strings.HasSuffix(word, "n't")
}

func indexOf(words []string, target string) int {
	for i, w := range words {
		if w == target {
			return i
		}
	}
	return -1
}

var _ Scorer = (*Lexicon)(nil)

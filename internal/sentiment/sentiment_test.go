package sentiment

import (
	"fmt"
	"testing"
)

func TestLabelThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  Label
	}{
		{0.05, Positive},
		{0.9, Positive},
		{-0.05, Negative},
		{-1, Negative},
		{0.0, Neutral},
		{0.049999, Neutral},
		{-0.049999, Neutral},
	}
	for _, tc := range cases {
		if got := LabelFor(tc.score); got != tc.want {
			t.Errorf("LabelFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestParseLabel(t *testing.T) {
	if l, ok := ParseLabel(" negative "); !ok || l != Negative {
		t.Fatalf("ParseLabel = %q, %v", l, ok)
	}
	if _, ok := ParseLabel("bullish"); ok {
		t.Fatal("unknown label should not parse")
	}
}

func TestLexiconPolarity(t *testing.T) {
	lex := NewLexicon(nil)

	bullish := lex.Score("Chip stocks surge to record high as strong earnings beat forecasts")
	if bullish < PositiveThreshold {
		t.Errorf("expected positive score, got %.4f", bullish)
	}

	bearish := lex.Score("Markets plunge as recession fears deepen and losses mount")
	if bearish > NegativeThreshold {
		t.Errorf("expected negative score, got %.4f", bearish)
	}

	neutral := lex.Score("Company announces new office location in Denver")
	if neutral != 0 {
		t.Errorf("expected zero score, got %.4f", neutral)
	}
}

func TestLexiconRange(t *testing.T) {
	lex := NewLexicon(nil)
	text := "GREAT great excellent best win success profit rally surge soar boom!!!!"
	if s := lex.Score(text); s <= 0.9 || s > 1 {
		t.Fatalf("score should saturate within (0.9, 1], got %.4f", s)
	}
	text = "crash plunge collapse crisis war fraud bankruptcy recession panic chaos"
	if s := lex.Score(text); s >= -0.9 || s < -1 {
		t.Fatalf("score should saturate within [-1, -0.9), got %.4f", s)
	}
}

func TestLexiconNegation(t *testing.T) {
	lex := NewLexicon(nil)
	plain := lex.Score("Outlook is good for retailers this quarter")
	negated := lex.Score("Outlook is not good for retailers this quarter")
	if plain <= 0 || negated >= 0 {
		t.Fatalf("negation should flip polarity: %.4f vs %.4f", plain, negated)
	}
	contracted := lex.Score("Investors aren't happy with the guidance")
	if contracted >= 0 {
		t.Fatalf("contracted negation should flip polarity, got %.4f", contracted)
	}
}

func TestLexiconModifiers(t *testing.T) {
	lex := NewLexicon(nil)
	base := lex.Score("Results were good for the bank")
	boosted := lex.Score("Results were very good for the bank")
	damped := lex.Score("Results were slightly good for the bank")
	if !(boosted > base && base > damped) {
		t.Fatalf("modifiers out of order: boosted %.4f base %.4f damped %.4f", boosted, base, damped)
	}

	baseBad := lex.Score("Results were bad for the bank")
	boostedBad := lex.Score("Results were very bad for the bank")
	dampedBad := lex.Score("Results were slightly bad for the bank")
	if !(boostedBad < baseBad && baseBad < dampedBad && dampedBad < 0) {
		t.Fatalf("negative modifiers out of order: boosted %.4f base %.4f damped %.4f", boostedBad, baseBad, dampedBad)
	}

	exclaimed := lex.Score("Results were good for the bank!")
	if exclaimed <= base {
		t.Fatalf("exclamation should amplify: %.4f vs %.4f", exclaimed, base)
	}

	shouted := lex.Score("Results were GOOD for the bank")
	if shouted <= base {
		t.Fatalf("caps should amplify: %.4f vs %.4f", shouted, base)
	}
}

func TestLexiconContrast(t *testing.T) {
	lex := NewLexicon(nil)
	s := lex.Score("Revenue was good but the outlook is bad")
	if s >= 0 {
		t.Fatalf("clause after 'but' should dominate, got %.4f", s)
	}
}

func TestLexiconDeterministicAndOverrides(t *testing.T) {
	lex := NewLexicon(map[string]float64{"Moonshot": 3})
	text := "Analysts call the launch a moonshot for the sector"
	first := lex.Score(text)
	for i := 0; i < 10; i++ {
		if got := lex.Score(text); got != first {
			t.Fatalf("score changed between calls: %v vs %v", first, got)
		}
	}
	if first <= 0 {
		t.Fatalf("override should be used, got %.4f", first)
	}
	if NewLexicon(nil).Score(text) != 0 {
		t.Fatal("override must not leak into other analysers")
	}
}

func TestLexiconEmpty(t *testing.T) {
	if s := NewLexicon(nil).Score("   ...  "); s != 0 {
		t.Fatalf("empty text should score 0, got %v", s)
	}
}

func TestVaderPolarity(t *testing.T) {
	vader := NewVader(nil)

	cases := []struct {
		text string
		want Label
	}{
		{"Chip stocks surge to record high on strong demand", Positive},
		{"Markets plunge as recession fears deepen", Negative},
		{"Central bank holds rates this quarter", Neutral},
	}
	for _, tc := range cases {
		if got := LabelFor(vader.Score(tc.text)); got != tc.want {
			t.Errorf("%q labelled %s, want %s", tc.text, got, tc.want)
		}
	}

	if s := vader.Score("  "); s != 0 {
		t.Fatalf("blank text should score 0, got %v", s)
	}
}

func TestVaderModifiers(t *testing.T) {
	vader := NewVader(nil)
	base := vader.Score("Results were good for the bank")
	boosted := vader.Score("Results were very good for the bank")
	damped := vader.Score("Results were slightly good for the bank")
	if !(boosted > base && base > damped && damped > 0) {
		t.Fatalf("modifiers out of order: boosted %.4f base %.4f damped %.4f", boosted, base, damped)
	}
	if negated := vader.Score("Results were not good for the bank"); negated >= 0 {
		t.Fatalf("negation should flip polarity, got %.4f", negated)
	}
}

func TestVaderOverrides(t *testing.T) {
	text := "Analysts call the launch a moonshot for the sector"
	if s := NewVader(nil).Score(text); s != 0 {
		t.Fatalf("stock lexicon should not know the word, got %.4f", s)
	}
	if s := NewVader(map[string]float64{"Moonshot": 3}).Score(text); s <= 0 {
		t.Fatalf("override should be used, got %.4f", s)
	}
}

func TestNewScorer(t *testing.T) {
	for name, want := range map[string]any{"": &Vader{}, "VADER": &Vader{}, "lexicon": &Lexicon{}} {
		scorer, err := NewScorer(name, nil)
		if err != nil {
			t.Fatalf("NewScorer(%q): %v", name, err)
		}
		if fmt.Sprintf("%T", scorer) != fmt.Sprintf("%T", want) {
			t.Fatalf("NewScorer(%q) = %T", name, scorer)
		}
	}
	if _, err := NewScorer("bert", nil); err == nil {
		t.Fatal("unknown analyser should fail")
	}
}

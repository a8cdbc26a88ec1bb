// Package sentiment scores headline polarity and buckets it into labels.
package sentiment

import "strings"

// Label is the categorical bucket stored next to each score.
type Label string

// Labels in display order.
const (
	Positive Label = "Positive"
	Neutral  Label = "Neutral"
	Negative Label = "Negative"
)

// Label thresholds on the compound score.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// Labels returns every label.
func Labels() []Label {
	return []Label{Positive, Neutral, Negative}
}

// LabelFor maps a compound score onto a label. Boundaries are inclusive.
func LabelFor(score float64) Label {
	switch {
	case score >= PositiveThreshold:
		return Positive
	case score <= NegativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// ParseLabel accepts a label name in any case.
func ParseLabel(s string) (Label, bool) {
	for _, l := range Labels() {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l, true
		}
	}
	return "", false
}

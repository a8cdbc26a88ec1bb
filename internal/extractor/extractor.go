// Package extractor turns raw source markup into filtered headlines.
package extractor

import (
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"sentiment-engine/internal/fetcher"
)

// DefaultMinLength is the shortest fragment, in characters, kept as a headline.
const DefaultMinLength = 25

// DefaultBoilerplate lists navigation fragments that look like headlines.
var DefaultBoilerplate = []string{"BBC is in multiple languages"}

// Headline is one retained fragment. It is not tied to an asset until the
// pipeline pairs it at write time.
type Headline struct {
	Text        string
	Source      string
	RetrievedAt time.Time
}

// Options configure the fragment filter.
type Options struct {
	MinLength   int
	Boilerplate []string
}

// Extractor parses markup and filters low-signal fragments.
type Extractor struct {
	minLength   int
	boilerplate []string
}

// New builds an extractor. A zero MinLength falls back to DefaultMinLength.
func New(opts Options) *Extractor {
	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	boilerplate := make([]string, 0, len(opts.Boilerplate))
	for _, phrase := range opts.Boilerplate {
		if phrase = strings.TrimSpace(phrase); phrase != "" {
			boilerplate = append(boilerplate, phrase)
		}
	}
	return &Extractor{minLength: minLength, boilerplate: boilerplate}
}

// Extract parses markup for src and returns a single-pass sequence of
// accepted headlines stamped with retrievedAt. Parse failures are returned
// before any headline is produced.
func (e *Extractor) Extract(src fetcher.Source, markup string, retrievedAt time.Time) (iter.Seq[Headline], error) {
	var fragments iter.Seq[string]
	switch src.Kind {
	case fetcher.KindRSS:
		feed, err := gofeed.NewParser().ParseString(markup)
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", src.Name, err)
		}
		fragments = func(yield func(string) bool) {
			for _, item := range feed.Items {
				if !yield(item.Title) {
					return
				}
			}
		}
	default:
		if src.Selector == "" {
			return nil, fmt.Errorf("source %s has no selector", src.Name)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			return nil, fmt.Errorf("parse html %s: %w", src.Name, err)
		}
		selection := doc.Find(src.Selector)
		fragments = func(yield func(string) bool) {
			selection.EachWithBreak(func(_ int, node *goquery.Selection) bool {
				return yield(node.Text())
			})
		}
	}

	consumed := false
	return func(yield func(Headline) bool) {
		if consumed {
			return
		}
		consumed = true
		for fragment := range fragments {
			text, ok := e.Accept(fragment)
			if !ok {
				continue
			}
			if !yield(Headline{Text: text, Source: src.Name, RetrievedAt: retrievedAt}) {
				return
			}
		}
	}, nil
}

// Accept trims a fragment and reports whether it qualifies as a headline.
func (e *Extractor) Accept(fragment string) (string, bool) {
	text := strings.TrimSpace(fragment)
	if utf8.RuneCountInString(text) < e.minLength {
		return "", false
	}
	for _, phrase := range e.boilerplate {
		if strings.Contains(text, phrase) {
			return "", false
		}
	}
	return text, true
}

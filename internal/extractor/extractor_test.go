package extractor

import (
	"slices"
	"strings"
	"testing"
	"time"

	"sentiment-engine/internal/fetcher"
)

const page = `<html><body>
<h3>   Chipmakers rally as AI demand lifts forecasts   </h3>
<h3>Short one</h3>
<h3>BBC is in multiple languages - choose yours here</h3>
<a href="/x">Gold slips as the dollar strengthens against peers</a>
<h3>Central bank holds rates steady, signals patience</h3>
</body></html>`

func collect(t *testing.T, e *Extractor, src fetcher.Source, markup string) []Headline {
	t.Helper()
	seq, err := e.Extract(src, markup, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return slices.Collect(seq)
}

func TestExtractHTMLSelectorAndFilter(t *testing.T) {
	e := New(Options{Boilerplate: DefaultBoilerplate})
	got := collect(t, e, fetcher.Source{Name: "BBC", Selector: "h3"}, page)

	if len(got) != 2 {
		t.Fatalf("expected 2 headlines, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Chipmakers rally as AI demand lifts forecasts" {
		t.Fatalf("text not trimmed: %q", got[0].Text)
	}
	for _, h := range got {
		if h.Source != "BBC" {
			t.Fatalf("source not tagged: %+v", h)
		}
	}
}

func TestExtractAnchorSelector(t *testing.T) {
	e := New(Options{})
	got := collect(t, e, fetcher.Source{Name: "CNBC", Selector: "a"}, page)
	if len(got) != 1 || !strings.HasPrefix(got[0].Text, "Gold slips") {
		t.Fatalf("unexpected anchors: %+v", got)
	}
}

func TestAcceptLengthBoundary(t *testing.T) {
	e := New(Options{MinLength: 25})

	short := strings.Repeat("x", 24)
	if _, ok := e.Accept(short); ok {
		t.Fatal("24 characters must be rejected")
	}
	exact := strings.Repeat("y", 25)
	if text, ok := e.Accept("  " + exact + "\n"); !ok || text != exact {
		t.Fatal("25 characters must be accepted after trimming")
	}
	// Length counts characters, not bytes.
	if _, ok := e.Accept(strings.Repeat("é", 24)); ok {
		t.Fatal("24 multi-byte characters must be rejected")
	}
}

func TestAcceptBoilerplate(t *testing.T) {
	e := New(Options{Boilerplate: []string{"Subscribe now", "  "}})
	if _, ok := e.Accept("Subscribe now for unlimited market coverage"); ok {
		t.Fatal("boilerplate must be rejected")
	}
	if _, ok := e.Accept("Oil prices climb on supply concerns in Asia"); !ok {
		t.Fatal("regular headline must be accepted")
	}
}

func TestExtractSequenceIsSinglePass(t *testing.T) {
	e := New(Options{})
	seq, err := e.Extract(fetcher.Source{Name: "BBC", Selector: "h3"}, page, time.Now())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if len(first) == 0 || len(second) != 0 {
		t.Fatalf("expected one pass only, got %d then %d", len(first), len(second))
	}
}

func TestExtractEarlyBreak(t *testing.T) {
	e := New(Options{})
	seq, err := e.Extract(fetcher.Source{Name: "BBC", Selector: "h3"}, page, time.Now())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	n := 0
	for range seq {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("break should stop iteration, got %d", n)
	}
}

func TestExtractRSS(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Markets</title>
<item><title>Treasury yields jump after hot inflation print</title></item>
<item><title>Brief</title></item>
</channel></rss>`
	e := New(Options{})
	got := collect(t, e, fetcher.Source{Name: "Feed", Kind: fetcher.KindRSS}, feed)
	if len(got) != 1 || got[0].Source != "Feed" {
		t.Fatalf("unexpected rss headlines: %+v", got)
	}
}

func TestExtractRSSParseError(t *testing.T) {
	e := New(Options{})
	if _, err := e.Extract(fetcher.Source{Name: "Feed", Kind: fetcher.KindRSS}, "not a feed", time.Now()); err == nil {
		t.Fatal("invalid feed should fail before iteration")
	}
}

func TestExtractRequiresSelector(t *testing.T) {
	e := New(Options{})
	if _, err := e.Extract(fetcher.Source{Name: "Page"}, page, time.Now()); err == nil {
		t.Fatal("html source without selector should fail")
	}
}

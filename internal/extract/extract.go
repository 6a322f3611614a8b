// Package extract locates product cards in rendered listing-page HTML
// and reads structured fields from each. Extraction is pure: callers
// hand in the page content, rows come out. Markup variants are handled
// by ordered fallback chains, so adding a new selector for a field is a
// one-line change.
package extract

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy attempts to pull one field's raw text out of a card. An
// empty string means the strategy did not match; the runner moves on to
// the next one in the chain.
type Strategy func(card *goquery.Selection) string

// Text reads the trimmed text of the first element matching selector.
func Text(selector string) Strategy {
	return func(card *goquery.Selection) string {
		return strings.TrimSpace(card.Find(selector).First().Text())
	}
}

// Attr reads an attribute of the first element matching selector.
func Attr(selector, name string) Strategy {
	return func(card *goquery.Selection) string {
		v, _ := card.Find(selector).First().Attr(name)
		return strings.TrimSpace(v)
	}
}

// SelfAttr reads an attribute of the card element itself.
func SelfAttr(name string) Strategy {
	return func(card *goquery.Selection) string {
		v, _ := card.Attr(name)
		return strings.TrimSpace(v)
	}
}

// First runs strategies in priority order and returns the first
// non-empty result.
func First(card *goquery.Selection, strategies ...Strategy) string {
	for _, s := range strategies {
		if v := s(card); v != "" {
			return v
		}
	}
	return ""
}

// Options carries the per-page extraction parameters. Offset is the
// list position already consumed by earlier pages of the same target;
// the returned offset continues the numbering.
type Options struct {
	SourceURL string
	Category  string
	Offset    int
	Limit     int
	Logger    *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// absoluteURL resolves href against base, returning "" when href is
// empty or unparseable.
func absoluteURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// inferPrices applies the full-text fallback: given all distinct
// currency amounts found on a card (descending), drop values under the
// noise floor when a larger subset exists, then take min as price and
// max as MRP when two candidates remain, or the single candidate as
// price only.
func inferPrices(amounts []float64, noiseFloor float64) (price, mrp *float64) {
	if len(amounts) == 0 {
		return nil, nil
	}
	candidates := amounts
	var above []float64
	for _, v := range amounts {
		if v >= noiseFloor {
			above = append(above, v)
		}
	}
	if len(above) > 0 {
		candidates = above
	}
	if len(candidates) >= 2 {
		hi, lo := candidates[0], candidates[1]
		if lo > hi {
			hi, lo = lo, hi
		}
		return &lo, &hi
	}
	return &candidates[0], nil
}

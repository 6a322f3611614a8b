package match

import (
	"regexp"
	"strings"

	"github.com/dealscope/listing-scraper/internal/models"
)

// DefaultThreshold is the minimum token-overlap score for a pair to
// count as the same product.
const DefaultThreshold = 0.55

// Matcher pairs rows from two platforms that appear to be the same
// product, using normalized title-token overlap.
type Matcher struct {
	threshold float64
}

func New(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

var punctRe = regexp.MustCompile(`[^a-z0-9+ ]+`)

// stopwords are marketing filler that inflates overlap without
// identifying the product. Bare unit tokens go too, so "128 GB" and
// "128GB" differ by one token instead of two; fused capacity tokens
// like "128gb" stay in, they distinguish variants.
var stopwords = map[string]struct{}{
	"with": {}, "and": {}, "the": {}, "for": {}, "new": {},
	"smartphone": {}, "mobile": {}, "phone": {},
	"5g": {}, "4g": {},
	"gb": {}, "mb": {}, "tb": {},
	"storage": {}, "ram": {}, "rom": {},
}

// Tokens normalizes a product title into its identifying tokens:
// lowercased, punctuation stripped (keeping '+', it separates model
// tiers), stopwords removed, duplicates collapsed.
func Tokens(title string) []string {
	lowered := punctRe.ReplaceAllString(strings.ToLower(title), " ")
	fields := strings.Fields(lowered)

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Score is |intersection| over the smaller token set, so a short title
// fully contained in a longer one still scores 1.0.
func Score(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	common := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			common++
		}
	}
	min := len(a)
	if len(b) < min {
		min = len(b)
	}
	return float64(common) / float64(min)
}

// Pairs matches Amazon rows against Flipkart rows. Candidates are
// bucketed by brand guess first so an Apple listing is never compared
// against a Samsung one. Amazon rows claim in list order: each takes
// its best-scoring unclaimed Flipkart row, and a claimed row is gone
// even if a later Amazon row would have scored higher on it.
func (m *Matcher) Pairs(rows []models.Row) []models.MatchPair {
	var amazon, flipkart []models.Row
	for _, r := range rows {
		if r.ProductName == nil {
			continue
		}
		switch r.Platform {
		case models.PlatformAmazon:
			amazon = append(amazon, r)
		case models.PlatformFlipkart:
			flipkart = append(flipkart, r)
		}
	}
	if len(amazon) == 0 || len(flipkart) == 0 {
		return nil
	}

	claimed := make(map[int]struct{}, len(flipkart))
	var out []models.MatchPair
	for _, a := range amazon {
		aTokens := Tokens(*a.ProductName)
		best := -1
		bestScore := 0.0
		for j, f := range flipkart {
			if _, taken := claimed[j]; taken {
				continue
			}
			if !brandsCompatible(a.BrandGuess, f.BrandGuess) {
				continue
			}
			sc := Score(aTokens, Tokens(*f.ProductName))
			if sc >= m.threshold && sc > bestScore {
				best, bestScore = j, sc
			}
		}
		if best >= 0 {
			claimed[best] = struct{}{}
			out = append(out, models.MatchPair{
				Amazon:   a,
				Flipkart: flipkart[best],
				Score:    bestScore,
			})
		}
	}
	return out
}

// brandsCompatible rejects pairs whose brand guesses disagree. A
// missing guess on either side is not evidence against a match.
func brandsCompatible(a, b *string) bool {
	if a == nil || b == nil {
		return true
	}
	return strings.EqualFold(*a, *b)
}

// Package parse turns raw listing-page text into typed values. All
// functions are tolerant of surrounding noise and return nil when the
// text carries no parseable signal.
package parse

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	moneyRe  = regexp.MustCompile(`[₹]?\s*([\d,]+\.?\d*)`)
	rupeeRe  = regexp.MustCompile(`₹\s*([\d,]+\.?\d*)`)
	boughtRe = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(k\+|k|\+)?\s+bought`)
	ratingRe = regexp.MustCompile(`([\d.]+)\s*out of 5`)
	countRe  = regexp.MustCompile(`([\d,]+)`)
)

// Money extracts the first currency amount from text, ignoring the rupee
// symbol and thousands separators.
func Money(text string) *float64 {
	m := moneyRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// PercentOff derives the discount from MRP and price, rounded to one
// decimal place. Defined only when mrp > 0 and price <= mrp; price above
// MRP signals bad data and yields nil.
func PercentOff(mrp, price *float64) *float64 {
	if mrp == nil || price == nil || *mrp <= 0 || *price > *mrp {
		return nil
	}
	v := math.Round(100*(*mrp-*price)/(*mrp)*10) / 10
	return &v
}

// ApproxCount parses sold-count phrases like "10K+ bought in past month"
// or "742 bought". A "K" magnitude multiplies the base by 1000, which is
// an approximation: the source text itself means "at least", never an
// exact count. Returns nil when the qualifying "bought" phrase is absent.
func ApproxCount(text string) *int {
	m := boughtRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	base, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "k") {
		base *= 1000
	}
	n := int(base)
	if n < 0 {
		return nil
	}
	return &n
}

// Rating parses star ratings of the form "4.3 out of 5 stars".
func Rating(text string) *float64 {
	m := ratingRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

// Count parses a plain integer with optional thousands separators, as
// found in review-count labels like "1,234" or "(1,234)".
func Count(text string) *int {
	m := countRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// RupeeAmounts collects every ₹-prefixed amount in text, deduplicated
// and sorted descending. Used as the last-resort price scan when
// structured selectors fail on a card.
func RupeeAmounts(text string) []float64 {
	matches := rupeeRe.FindAllStringSubmatch(text, -1)
	seen := make(map[float64]struct{}, len(matches))
	var vals []float64
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		vals = append(vals, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	return vals
}

// Float returns a pointer to v, a small helper for literals in callers
// and tests.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }

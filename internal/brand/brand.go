// Package brand maps product titles to a known brand using a fixed
// heuristic. False negatives are expected for untracked brands.
package brand

import (
	"regexp"
	"strings"
)

// aliases covers product lines whose titles rarely lead with the maker.
var aliases = map[string]string{
	"iphone": "Apple",
	"mi":     "Xiaomi",
	"redmi":  "Xiaomi",
	"moto":   "Motorola",
}

var known = map[string]struct{}{
	"samsung": {}, "apple": {}, "xiaomi": {}, "oneplus": {}, "realme": {},
	"vivo": {}, "oppo": {}, "iqoo": {}, "motorola": {}, "tecno": {},
	"infinix": {}, "lava": {}, "nokia": {}, "honor": {}, "google": {},
	"acer": {}, "poco": {},
	// laptops and accessories
	"hp": {}, "dell": {}, "lenovo": {}, "asus": {}, "msi": {},
	"boat": {}, "jbl": {}, "sony": {}, "zebronics": {}, "logitech": {},
	"portronics": {}, "ambrane": {}, "sandisk": {}, "crucial": {},
}

var tokenRe = regexp.MustCompile(`[^A-Za-z0-9+]`)

// Guess scans the first four whitespace-delimited tokens of a title and
// returns the first recognized brand, capitalized, or nil when no rule
// matches.
func Guess(title string) *string {
	if title == "" {
		return nil
	}
	tokens := strings.Fields(title)
	if len(tokens) > 4 {
		tokens = tokens[:4]
	}
	for _, raw := range tokens {
		t := strings.ToLower(tokenRe.ReplaceAllString(raw, ""))
		if t == "" {
			continue
		}
		if b, ok := aliases[t]; ok {
			return &b
		}
		if _, ok := known[t]; ok {
			b := strings.ToUpper(t[:1]) + t[1:]
			return &b
		}
	}
	return nil
}

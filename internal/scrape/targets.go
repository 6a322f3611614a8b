package scrape

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/dealscope/listing-scraper/internal/models"
)

// Target is one listing page to scrape.
type Target struct {
	Platform models.Platform
	URL      string
	Category string
}

// preset maps a category name to ready-made search URLs per platform.
type preset struct {
	Amazon   string
	Flipkart string
}

var presets = map[string]preset{
	"mobiles": {
		Amazon:   "https://www.amazon.in/s?k=mobile+phones&rh=n%3A1389401031",
		Flipkart: "https://www.flipkart.com/search?q=mobile+phones",
	},
	"mobile_accessories": {
		Amazon:   "https://www.amazon.in/s?k=mobile+accessories",
		Flipkart: "https://www.flipkart.com/search?q=mobile+accessories",
	},
	"laptops": {
		Amazon:   "https://www.amazon.in/s?k=laptops",
		Flipkart: "https://www.flipkart.com/search?q=laptops",
	},
	"laptop_accessories": {
		Amazon:   "https://www.amazon.in/s?k=laptop+accessories",
		Flipkart: "https://www.flipkart.com/search?q=laptop+accessories",
	},
}

// PresetTargets expands a named preset into one target per platform.
func PresetTargets(name string) ([]Target, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	return []Target{
		{Platform: models.PlatformAmazon, URL: p.Amazon, Category: name},
		{Platform: models.PlatformFlipkart, URL: p.Flipkart, Category: name},
	}, nil
}

// PresetNames lists the supported preset categories.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

// pageURL appends or replaces the page query parameter. Page 1 keeps
// the URL untouched since both platforms treat the bare URL as page 1.
func pageURL(raw string, page int) string {
	if page <= 1 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

package models

import (
	"time"
)

type Platform string

const (
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
)

// Row is one normalized product listing extracted from a search-result page.
// Numeric fields are pointers because the source markup routinely omits them;
// a nil value means "not found", which is normal operation, not an error.
type Row struct {
	Platform        Platform `json:"platform"`
	Category        string   `json:"category,omitempty"`
	ListPosition    int      `json:"list_position"`
	ProductName     *string  `json:"product_name"`
	BrandGuess      *string  `json:"brand_guess"`
	Price           *float64 `json:"price"`
	MRP             *float64 `json:"mrp"`
	DiscountPercent *float64 `json:"discount_percent"`
	Rating          *float64 `json:"rating"`
	ReviewCount     *int     `json:"review_count"`
	ItemsSoldMonth  *int     `json:"items_sold_month"`
	BadgeBestSeller bool     `json:"badge_best_seller"`
	ProductURL      string   `json:"product_url"`
	ImageURL        *string  `json:"image_url"`
	SourceURL       string   `json:"source_url"`
	Date            string   `json:"date"`
	Timestamp       string   `json:"timestamp"`
}

// NewRow stamps capture time; date and timestamp are immutable after this.
func NewRow(platform Platform, sourceURL string) Row {
	now := time.Now().UTC()
	return Row{
		Platform:  platform,
		SourceURL: sourceURL,
		Date:      now.Format("2006-01-02"),
		Timestamp: now.Format(time.RFC3339),
	}
}

// Key is the deduplication identity: at most one row per platform+URL
// survives to the final result set.
func (r Row) Key() string {
	return string(r.Platform) + "|" + r.ProductURL
}

// MatchPair links two rows from different platforms believed to be the
// same product, with the matcher's confidence score.
type MatchPair struct {
	Amazon   Row     `json:"amazon"`
	Flipkart Row     `json:"flipkart"`
	Score    float64 `json:"score"`
}

// CaptchaFlags reports which platforms served an anti-bot interstitial
// instead of a listing page during a run.
type CaptchaFlags struct {
	Flipkart bool `json:"flipkart"`
}

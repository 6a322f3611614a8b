package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscope/listing-scraper/internal/brand"
	"github.com/dealscope/listing-scraper/internal/models"
	"github.com/dealscope/listing-scraper/internal/parse"
)

const (
	// AmazonReadySelector marks a rendered Amazon search-result page.
	AmazonReadySelector = "div.s-main-slot"

	amazonBase       = "https://www.amazon.in"
	amazonCardSel    = "div.s-main-slot div.s-result-item[data-component-type='s-search-result']"
	amazonNoiseFloor = 100
)

var (
	amazonTitle = []Strategy{
		Text("h2 a span.a-size-medium"),
		Text("h2 a span"),
		Text("h2"),
		Attr("h2 a", "aria-label"),
	}
	amazonLink  = []Strategy{Attr("h2 a", "href"), Attr("a.a-link-normal.s-no-outline", "href")}
	amazonImage = []Strategy{Attr("img.s-image", "src")}
	amazonPrice = []Strategy{
		Text("span.a-price:not(.a-text-price) span.a-offscreen"),
		Text("span.a-price-whole"),
	}
	amazonMRP = []Strategy{
		Text("span.a-text-price span.a-offscreen"),
		Text("span.a-price.a-text-price"),
	}
	amazonRating = []Strategy{
		Text("span.a-icon-alt"),
		Attr("i.a-icon-star-small span", "aria-label"),
	}
	amazonReviews = []Strategy{
		Text("span.a-size-base.s-underline-text"),
		Attr("a[aria-label$='ratings']", "aria-label"),
	}
	amazonBadge = []Strategy{
		Text("span.a-badge-text"),
		Text("span.a-badge-label span"),
	}
)

var amazonBadgePhrases = []string{"best seller", "amazon's choice", "limited time deal"}

// Amazon extracts product rows from a rendered Amazon search-result
// page. A missing result container yields an empty result, not an
// error: the page may legitimately be empty. Returns the rows and the
// continued list position.
func Amazon(html string, opts Options) ([]models.Row, int) {
	logger := opts.logger().With("platform", "amazon")
	pos := opts.Offset

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("listing page did not parse", "error", err)
		return nil, pos
	}
	if doc.Find(AmazonReadySelector).Length() == 0 {
		logger.Debug("result container not found")
		return nil, pos
	}

	base, _ := url.Parse(amazonBase)
	var out []models.Row

	doc.Find(amazonCardSel).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		row, ok := amazonCard(card, base, opts)
		if !ok {
			logger.Debug("card skipped, no usable signal")
			return true
		}
		pos++
		row.ListPosition = pos
		out = append(out, row)
		return opts.Limit <= 0 || len(out) < opts.Limit
	})

	logger.Debug("extracted rows", "count", len(out))
	return out, pos
}

func amazonCard(card *goquery.Selection, base *url.URL, opts Options) (models.Row, bool) {
	row := models.NewRow(models.PlatformAmazon, opts.SourceURL)
	row.Category = opts.Category

	if name := First(card, amazonTitle...); name != "" {
		row.ProductName = &name
		row.BrandGuess = brand.Guess(name)
	}

	href := First(card, amazonLink...)
	if u := absoluteURL(base, href); u != "" {
		row.ProductURL = u
	} else if asin := First(card, SelfAttr("data-asin")); asin != "" {
		row.ProductURL = amazonBase + "/dp/" + asin
	}

	if img := First(card, amazonImage...); img != "" {
		if u := absoluteURL(base, img); u != "" {
			row.ImageURL = &u
		}
	}

	row.Price = parse.Money(First(card, amazonPrice...))
	row.MRP = parse.Money(First(card, amazonMRP...))
	if row.Price == nil && row.MRP == nil {
		row.Price, row.MRP = inferPrices(parse.RupeeAmounts(card.Text()), amazonNoiseFloor)
	}
	row.DiscountPercent = parse.PercentOff(row.MRP, row.Price)

	row.Rating = parse.Rating(First(card, amazonRating...))
	row.ReviewCount = parse.Count(First(card, amazonReviews...))
	row.ItemsSoldMonth = parse.ApproxCount(card.Text())

	if badge := strings.ToLower(First(card, amazonBadge...)); badge != "" {
		for _, phrase := range amazonBadgePhrases {
			if strings.Contains(badge, phrase) {
				row.BadgeBestSeller = true
				break
			}
		}
	}

	// A card with neither name, price, nor URL contributes nothing and
	// must not produce a placeholder row.
	if row.ProductName == nil && row.Price == nil && row.ProductURL == "" {
		return models.Row{}, false
	}
	return row, true
}

package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscope/listing-scraper/internal/brand"
	"github.com/dealscope/listing-scraper/internal/models"
	"github.com/dealscope/listing-scraper/internal/parse"
)

const (
	// FlipkartReadySelector marks a rendered Flipkart listing: product
	// anchors are the one stable hook across its rotating class names.
	FlipkartReadySelector = "a[href*='/p/']"

	// FlipkartGridSelector is the fallback readiness marker when no
	// product anchor renders (grid wrappers appear first on some
	// layouts).
	FlipkartGridSelector = "div._1YokD2, div._2kHMtA, div.y0S0Pe"

	flipkartBase = "https://www.flipkart.com"

	// Amounts under this are usually delivery fees, exchange bonuses or
	// EMI figures, not phone prices. Only applied when a larger-value
	// subset exists on the card.
	flipkartNoiseFloor = 3000
)

// flipkartCardSel holds the known card-container classes; the anchor's
// closest match anchors field lookups.
const flipkartCardSel = "div._2kHMtA, div._4ddWXP, div._1AtVbE, div.gUuXy-, div.y0S0Pe"

var (
	flipkartTitle = []Strategy{
		Text("div._4rR01T"),
		Text("a.s1Q9rs"),
		Text("div.KzDlHZ"),
		Text("a.IRpwTa"),
		Attr("img", "alt"),
	}
	flipkartImage = []Strategy{Attr("img._396cs4", "src"), Attr("img._2r_T1I", "src"), Attr("img", "src")}
	flipkartPrice = []Strategy{
		Text("div._30jeq3._1_WHN1"),
		Text("div._30jeq3"),
		Text("div.Nx9bqj"),
	}
	flipkartMRP = []Strategy{
		Text("div._3I9_wc._27UcVY"),
		Text("div._3I9_wc"),
		Text("div.yRaY8j"),
	}
	flipkartRating  = []Strategy{Text("div._3LWZlK"), Text("div.XQDdHH")}
	flipkartReviews = []Strategy{Text("span._2_R_DZ"), Text("span.Wphh3N")}
)

// Flipkart extracts product rows from a rendered Flipkart listing page.
// Cards are discovered through product anchors rather than a container
// selector because Flipkart rotates its grid class names frequently;
// duplicate anchors into the same product are collapsed here, before
// the cross-page deduplicator ever sees them.
func Flipkart(html string, opts Options) ([]models.Row, int) {
	logger := opts.logger().With("platform", "flipkart")
	pos := opts.Offset

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("listing page did not parse", "error", err)
		return nil, pos
	}

	base, _ := url.Parse(flipkartBase)
	seen := make(map[string]struct{})
	var out []models.Row

	doc.Find(FlipkartReadySelector).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, _ := anchor.Attr("href")
		productURL := absoluteURL(base, href)
		if productURL == "" {
			return true
		}
		if _, dup := seen[productURL]; dup {
			return true
		}
		seen[productURL] = struct{}{}

		card := anchor.Closest(flipkartCardSel)
		if card.Length() == 0 {
			card = anchor.Parent()
		}

		row, ok := flipkartCard(card, productURL, base, opts)
		if !ok {
			logger.Debug("card skipped, no usable signal", "url", productURL)
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

func flipkartCard(card *goquery.Selection, productURL string, base *url.URL, opts Options) (models.Row, bool) {
	row := models.NewRow(models.PlatformFlipkart, opts.SourceURL)
	row.Category = opts.Category
	row.ProductURL = productURL

	if name := First(card, flipkartTitle...); name != "" {
		row.ProductName = &name
		row.BrandGuess = brand.Guess(name)
	}

	if img := First(card, flipkartImage...); img != "" {
		if u := absoluteURL(base, img); u != "" {
			row.ImageURL = &u
		}
	}

	row.Price = parse.Money(First(card, flipkartPrice...))
	row.MRP = parse.Money(First(card, flipkartMRP...))
	if row.Price == nil || row.MRP == nil {
		price, mrp := inferPrices(parse.RupeeAmounts(card.Text()), flipkartNoiseFloor)
		if row.Price == nil {
			row.Price = price
		}
		if row.MRP == nil && mrp != nil {
			row.MRP = mrp
		}
	}
	row.DiscountPercent = parse.PercentOff(row.MRP, row.Price)

	// Flipkart renders bare star values like "4.3" without a phrase.
	if txt := First(card, flipkartRating...); txt != "" {
		if v, err := strconv.ParseFloat(txt, 64); err == nil && v >= 0 && v <= 5 {
			row.Rating = &v
		}
	}
	row.ReviewCount = parse.Count(First(card, flipkartReviews...))
	row.BadgeBestSeller = strings.Contains(card.Text(), "Bestseller")

	if row.ProductName == nil && row.Price == nil {
		return models.Row{}, false
	}
	return row, true
}

package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscope/listing-scraper/internal/parse"
)

// Detail-page price chains, used by the optional enrichment pass for
// rows whose listing card carried no price.

var (
	amazonPDPPrice = []Strategy{
		Text("#corePrice_feature_div .a-offscreen"),
		Text("#apex_desktop .a-offscreen"),
		Text("span.a-price:not(.a-text-price) span.a-offscreen"),
	}
	amazonPDPMRP = []Strategy{
		Text("span.a-price.a-text-price span.a-offscreen"),
	}
	flipkartPDPPrice = []Strategy{
		Text("div._30jeq3._16Jk6d"),
		Text("div.Nx9bqj.CxhGGd"),
		Text("div._30jeq3"),
	}
	flipkartPDPMRP = []Strategy{
		Text("div._3I9_wc._2p6lqe"),
		Text("div._3I9_wc"),
	}
)

// AmazonPDP reads price and MRP from an Amazon product detail page.
func AmazonPDP(html string) (price, mrp *float64) {
	return pdpPrices(html, amazonPDPPrice, amazonPDPMRP)
}

// FlipkartPDP reads price and MRP from a Flipkart product detail page.
func FlipkartPDP(html string) (price, mrp *float64) {
	return pdpPrices(html, flipkartPDPPrice, flipkartPDPMRP)
}

func pdpPrices(html string, priceChain, mrpChain []Strategy) (price, mrp *float64) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil
	}
	root := doc.Selection
	price = parse.Money(First(root, priceChain...))
	mrp = parse.Money(First(root, mrpChain...))
	return price, mrp
}

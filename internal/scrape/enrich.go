package scrape

import (
	"context"
	"sync"
	"time"

	"github.com/dealscope/listing-scraper/internal/browser"
	"github.com/dealscope/listing-scraper/internal/extract"
	"github.com/dealscope/listing-scraper/internal/models"
	"github.com/dealscope/listing-scraper/internal/parse"
	"github.com/dealscope/listing-scraper/internal/trace"
)

// enrich visits product detail pages for rows that came off the
// listing without a price, filling price and MRP in place. Capped
// concurrency keeps the burst polite; the budget check before each
// visit means enrichment quietly stops when time runs low rather than
// blowing the deadline.
func (s *Service) enrich(ctx context.Context, b *browser.Browser, budget *Budget, rows []models.Row, tr *trace.Trace) {
	var idxs []int
	for i, r := range rows {
		if r.Price == nil && r.ProductURL != "" {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return
	}
	tr.Addf("enrich: %d row(s) missing price", len(idxs))

	sem := make(chan struct{}, s.scraper.PDPConcurrency)
	var wg sync.WaitGroup
	for _, i := range idxs {
		if ctx.Err() != nil || !budget.Allows(minPageCost) {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			s.enrichRow(b, budget, &rows[i], tr)
		}(i)
	}
	wg.Wait()
}

func (s *Service) enrichRow(b *browser.Browser, budget *Budget, row *models.Row, tr *trace.Trace) {
	if !budget.Allows(minPageCost) {
		return
	}

	page, err := b.NewPage()
	if err != nil {
		return
	}
	defer page.Close()
	b.BlockHeavyAssets(page)

	navTimeout := budget.Clamp(s.browser.NavTimeout)
	if navTimeout < minPageCost {
		return
	}
	res := b.Navigate(page, row.ProductURL, "body", navTimeout, nil)
	if !res.OK {
		return
	}
	browser.SettleWait(50*time.Millisecond, 150*time.Millisecond)

	html, err := page.Content()
	if err != nil {
		return
	}

	var price, mrp *float64
	if row.Platform == models.PlatformAmazon {
		price, mrp = extract.AmazonPDP(html)
	} else {
		price, mrp = extract.FlipkartPDP(html)
	}

	if row.Price == nil && price != nil {
		row.Price = price
	}
	if row.MRP == nil && mrp != nil {
		row.MRP = mrp
	}
	row.DiscountPercent = parse.PercentOff(row.MRP, row.Price)
	if row.Price != nil {
		tr.Addf("enrich: filled price for %s", row.ProductURL)
	}
}

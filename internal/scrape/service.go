package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/dealscope/listing-scraper/internal/browser"
	"github.com/dealscope/listing-scraper/internal/config"
	"github.com/dealscope/listing-scraper/internal/extract"
	"github.com/dealscope/listing-scraper/internal/metrics"
	"github.com/dealscope/listing-scraper/internal/models"
	"github.com/dealscope/listing-scraper/internal/trace"
)

// ErrBrowserLaunch marks a run that failed before any page loaded.
var ErrBrowserLaunch = errors.New("browser launch failed")

// minPageCost is the least time worth starting another page load with.
const minPageCost = 500 * time.Millisecond

// Request describes one scrape run.
type Request struct {
	Targets      []Target
	MaxPages     int
	PerListLimit int
	HardLimit    time.Duration
	NavTimeout   time.Duration
	PDPPrices    bool
	DebugShot    bool
	Trace        *trace.Trace
}

// Result is the assembled outcome of a run.
type Result struct {
	Rows       []models.Row
	Captcha    models.CaptchaFlags
	Screenshot string
}

// Service owns the scraping pipeline: it launches a browser per run,
// fans out over targets, extracts rows and deduplicates the merged
// output.
type Service struct {
	scraper config.ScraperConfig
	browser config.BrowserConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		scraper: cfg.Scraper,
		browser: cfg.Browser,
		metrics: m,
		logger:  logger.With("component", "scrape"),
	}
}

// runState holds what concurrent target workers share.
type runState struct {
	mu      sync.Mutex
	captcha models.CaptchaFlags
	shot    string
}

// Run executes the request. Each run gets a fresh browser so one
// request's anti-bot reputation never bleeds into the next; launch
// failure is the only hard error, everything after degrades to fewer
// rows.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Targets) == 0 {
		return nil, errors.New("no targets")
	}
	s.applyDefaults(&req)
	tr := req.Trace

	budget := NewBudget(req.HardLimit, s.scraper.SafetyMargin)
	start := time.Now()
	defer func() { s.metrics.ObserveRun(time.Since(start).Seconds()) }()

	opts := browser.DefaultOptions()
	opts.Headless = s.browser.Headless
	opts.Timeout = s.browser.NavTimeout
	if ua := s.browser.RandomUserAgent(); ua != "" {
		opts.UserAgent = ua
	}

	b, err := browser.New(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}
	defer b.Close()
	tr.Addf("browser up, %d target(s), budget %s", len(req.Targets), budget.Remaining().Round(time.Millisecond))

	state := &runState{}
	perTarget := make([][]models.Row, len(req.Targets))

	var wg sync.WaitGroup
	for i, t := range req.Targets {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			perTarget[i] = s.scrapeTarget(ctx, b, budget, t, req, state)
		}(i, t)
	}
	wg.Wait()

	var rows []models.Row
	for _, part := range perTarget {
		rows = append(rows, part...)
	}
	before := len(rows)
	rows = Dedupe(rows)
	if dropped := before - len(rows); dropped > 0 {
		tr.Addf("dedupe dropped %d row(s)", dropped)
	}

	if req.PDPPrices {
		s.enrich(ctx, b, budget, rows, tr)
	}

	s.logger.Info("run complete",
		"run_id", tr.RunID(),
		"rows", len(rows),
		"dur_ms", time.Since(start).Milliseconds(),
		"captcha_flipkart", state.captcha.Flipkart)

	return &Result{Rows: rows, Captcha: state.captcha, Screenshot: state.shot}, nil
}

func (s *Service) applyDefaults(req *Request) {
	if req.HardLimit <= 0 {
		req.HardLimit = s.scraper.HardLimit
	}
	if req.NavTimeout <= 0 || req.NavTimeout > req.HardLimit {
		req.NavTimeout = s.browser.NavTimeout
	}
	if req.PerListLimit <= 0 {
		req.PerListLimit = s.scraper.PerListLimit
	}
	if req.PerListLimit > s.scraper.MaxPerListLimit {
		req.PerListLimit = s.scraper.MaxPerListLimit
	}
	if req.MaxPages <= 0 {
		req.MaxPages = s.scraper.MaxPages
	}
	if req.MaxPages > 3 {
		req.MaxPages = 3
	}
}

func (s *Service) scrapeTarget(ctx context.Context, b *browser.Browser, budget *Budget, t Target, req Request, state *runState) []models.Row {
	tr := req.Trace
	logger := s.logger.With("platform", t.Platform)

	page, err := b.NewPage()
	if err != nil {
		logger.Error("page creation failed", "error", err)
		tr.Addf("%s: page creation failed: %v", t.Platform, err)
		return nil
	}
	defer page.Close()
	b.BlockHeavyAssets(page)

	var rows []models.Row
	offset := 0

	for pageNum := 1; pageNum <= req.MaxPages; pageNum++ {
		if ctx.Err() != nil {
			tr.Addf("%s: context cancelled", t.Platform)
			break
		}
		if len(rows) >= req.PerListLimit {
			break
		}
		if !budget.Allows(minPageCost) {
			tr.Addf("%s: budget exhausted before page %d", t.Platform, pageNum)
			break
		}

		pageRows, status := s.scrapePage(b, page, budget, t, req, state, pageNum, offset, req.PerListLimit-len(rows))
		s.metrics.PageScraped(string(t.Platform), status)
		if status != "ok" {
			break
		}

		s.metrics.RowsAdded(string(t.Platform), len(pageRows))
		tr.Addf("%s: page %d yielded %d row(s)", t.Platform, pageNum, len(pageRows))
		rows = append(rows, pageRows...)
		if len(pageRows) > 0 {
			offset = pageRows[len(pageRows)-1].ListPosition
		}

		// A near-empty page means the layout changed or results ran
		// out; later pages will not do better.
		if len(pageRows) < s.scraper.MinCardsPerPage {
			tr.Addf("%s: thin page (%d < %d), stopping pagination", t.Platform, len(pageRows), s.scraper.MinCardsPerPage)
			break
		}
	}

	return rows
}

// scrapePage loads one listing page and extracts its rows. The status
// string feeds the page metrics: ok, nav_failed, captcha or
// content_failed.
func (s *Service) scrapePage(b *browser.Browser, page playwright.Page, budget *Budget, t Target, req Request, state *runState, pageNum, offset, limit int) ([]models.Row, string) {
	tr := req.Trace
	pageAddr := pageURL(t.URL, pageNum)
	navTimeout := budget.Clamp(req.NavTimeout)
	if s.scraper.EvenSplit {
		if share := budget.TargetBudget(len(req.Targets)); navTimeout > share {
			navTimeout = share
		}
	}

	readySel := extract.AmazonReadySelector
	var detect browser.InterstitialDetector
	if t.Platform == models.PlatformFlipkart {
		readySel = extract.FlipkartReadySelector
		detect = browser.RecaptchaTitle
	}

	res := b.Navigate(page, pageAddr, readySel, navTimeout, detect)
	if res.Interstitial {
		s.metrics.Captcha(string(t.Platform))
		tr.Addf("%s: interstitial on page %d", t.Platform, pageNum)
		state.mu.Lock()
		if t.Platform == models.PlatformFlipkart {
			state.captcha.Flipkart = true
		}
		state.mu.Unlock()
		return nil, "captcha"
	}
	if !res.OK {
		// Flipkart sometimes renders the grid before any product
		// anchor; give the wrapper selector one more chance on the
		// already-loaded page.
		recovered := false
		if wait := budget.Clamp(2 * time.Second); t.Platform == models.PlatformFlipkart && wait >= 100*time.Millisecond {
			waitMS := playwright.Float(float64(wait.Milliseconds()))
			if _, err := page.WaitForSelector(extract.FlipkartGridSelector, playwright.PageWaitForSelectorOptions{Timeout: waitMS}); err == nil {
				recovered = true
				tr.Addf("flipkart: recovered via grid selector on page %d", pageNum)
			}
		}
		if !recovered {
			tr.Addf("%s: navigation failed on page %d", t.Platform, pageNum)
			return nil, "nav_failed"
		}
	}

	if t.Platform == models.PlatformFlipkart {
		closeFlipkartPopups(page)
	}
	b.AutoScroll(page, s.scraper.ScrollSteps, s.scraper.ScrollPause)
	browser.SettleWait(s.scraper.MinWait, s.scraper.MaxWait)

	if req.DebugShot {
		s.captureShot(b, page, state)
	}

	html, err := page.Content()
	if err != nil {
		tr.Addf("%s: content read failed on page %d: %v", t.Platform, pageNum, err)
		return nil, "content_failed"
	}

	extOpts := extract.Options{
		SourceURL: pageAddr,
		Category:  t.Category,
		Offset:    offset,
		Limit:     limit,
		Logger:    s.logger,
	}
	var rows []models.Row
	if t.Platform == models.PlatformAmazon {
		rows, _ = extract.Amazon(html, extOpts)
	} else {
		rows, _ = extract.Flipkart(html, extOpts)
	}
	return rows, "ok"
}

func (s *Service) captureShot(b *browser.Browser, page playwright.Page, state *runState) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.shot != "" {
		return
	}
	shot, err := b.Screenshot(page)
	if err != nil {
		s.logger.Warn("debug screenshot failed", "error", err)
		return
	}
	state.shot = shot
}

// closeFlipkartPopups dismisses the login modal that covers the grid
// on first load. Errors are irrelevant, the modal may simply not be
// there.
func closeFlipkartPopups(page playwright.Page) {
	_ = page.Click("button._2KpZ6l._2doB4z", playwright.PageClickOptions{
		Timeout: playwright.Float(400),
	})
	_ = page.Keyboard().Press("Escape")
}

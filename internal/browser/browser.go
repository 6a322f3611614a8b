package browser

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        8 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36",
		ViewportWidth:  1360,
		ViewportHeight: 900,
		AcceptLanguage: "en-IN,en;q=0.9",
		TimezoneID:     "Asia/Kolkata",
		Locale:         "en-IN",
		ExtraHeaders: map[string]string{
			"accept-language":           "en-IN,en;q=0.9",
			"upgrade-insecure-requests": "1",
			"sec-fetch-mode":            "navigate",
		},
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--user-agent=" + opts.UserAgent,
		},
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:       &opts.UserAgent,
		AcceptDownloads: playwright.Bool(false),
		Locale:          &opts.Locale,
		TimezoneId:      &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.ExtraHeaders,
	}

	context, err := b.NewContext(contextOpts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: b,
		context: context,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	return page, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// NavResult is the outcome of one navigation attempt sequence.
type NavResult struct {
	OK           bool
	Interstitial bool
}

// InterstitialDetector decides whether the loaded page is an anti-bot
// challenge rather than real content. Kept as a predicate so the signal
// (title text, status code, DOM marker) can change without touching the
// retry logic.
type InterstitialDetector func(page playwright.Page) bool

// TitleDetector builds a detector that matches the page title against re.
func TitleDetector(re *regexp.Regexp) InterstitialDetector {
	return func(page playwright.Page) bool {
		title, err := page.Title()
		if err != nil {
			return false
		}
		return re.MatchString(title)
	}
}

// RecaptchaTitle flags Flipkart's challenge page, which swaps the page
// title for a reCAPTCHA prompt.
var RecaptchaTitle = TitleDetector(regexp.MustCompile(`(?i)recaptcha`))

const (
	navAttempts   = 2
	retryBackoff  = 500 * time.Millisecond
	minNavTimeout = 250 * time.Millisecond
)

// Navigate loads url and blocks until readySel appears. Failed attempts
// are retried once after a short fixed backoff. A detected interstitial
// short-circuits without retry: a block page will not yield data, and
// retrying it only burns the time budget.
func (b *Browser) Navigate(page playwright.Page, url, readySel string, timeout time.Duration, detect InterstitialDetector) NavResult {
	if timeout < minNavTimeout {
		timeout = minNavTimeout
	}
	ms := playwright.Float(float64(timeout.Milliseconds()))

	for attempt := 1; attempt <= navAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(retryBackoff)
		}

		start := time.Now()
		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   ms,
		})
		if err != nil {
			b.logger.Warn("navigation failed", "url", url, "attempt", attempt, "error", err)
			continue
		}

		if detect != nil && detect(page) {
			b.logger.Info("interstitial detected", "url", url)
			return NavResult{Interstitial: true}
		}

		// The selector wait only gets what the goto left of this
		// attempt's allowance, so one attempt never runs 2x timeout.
		selMS := playwright.Float(float64(remainingTimeout(timeout, time.Since(start)).Milliseconds()))
		if _, err := page.WaitForSelector(readySel, playwright.PageWaitForSelectorOptions{Timeout: selMS}); err != nil {
			b.logger.Warn("readiness selector missing", "url", url, "selector", readySel, "attempt", attempt, "error", err)
			continue
		}

		b.logger.Debug("page ready", "url", url, "dur_ms", time.Since(start).Milliseconds())
		return NavResult{OK: true}
	}

	return NavResult{}
}

// remainingTimeout returns what is left of total after elapsed, floored
// so a nearly spent allowance still gives the wait a chance to see an
// already-rendered selector.
func remainingTimeout(total, elapsed time.Duration) time.Duration {
	left := total - elapsed
	if left < minNavTimeout {
		return minNavTimeout
	}
	return left
}

// BlockHeavyAssets aborts image, media and font requests on page to
// keep listing loads inside the time budget.
func (b *Browser) BlockHeavyAssets(page playwright.Page) {
	err := page.Route("**/*", func(route playwright.Route) {
		switch route.Request().ResourceType() {
		case "image", "media", "font":
			route.Abort()
		default:
			route.Continue()
		}
	})
	if err != nil {
		b.logger.Warn("failed to install request filter", "error", err)
	}
}

// AutoScroll nudges lazy-loaded cards into the DOM.
func (b *Browser) AutoScroll(page playwright.Page, steps int, pause time.Duration) {
	for i := 0; i < steps; i++ {
		if _, err := page.Evaluate(`window.scrollBy(0, document.body.scrollHeight)`); err != nil {
			return
		}
		time.Sleep(pause)
	}
}

// SettleWait sleeps a random duration in [min,max], mimicking a human
// pause between load and read.
func SettleWait(min, max time.Duration) {
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

// Screenshot captures the current page as a JPEG data URL for the
// debug panel.
func (b *Browser) Screenshot(page playwright.Page) (string, error) {
	buf, err := page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypeJpeg,
		Quality: playwright.Int(40),
	})
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf), nil
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors for the scraping pipeline.
// A dedicated registry keeps the /metrics output free of default Go
// collectors noise from libraries.
type Metrics struct {
	Registry *prometheus.Registry

	PagesScrapedTotal *prometheus.CounterVec
	RowsExtracted     *prometheus.CounterVec
	CaptchaTotal      *prometheus.CounterVec
	CacheHitsTotal    *prometheus.CounterVec
	ScrapeDuration    prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		PagesScrapedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_pages_scraped_total",
			Help: "Listing pages loaded, by platform and outcome.",
		}, []string{"platform", "status"}),
		RowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_rows_extracted_total",
			Help: "Product rows extracted, by platform.",
		}, []string{"platform"}),
		CaptchaTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_captcha_total",
			Help: "Anti-bot interstitials encountered, by platform.",
		}, []string{"platform"}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_cache_requests_total",
			Help: "Response cache lookups, by result.",
		}, []string{"result"}),
		ScrapeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scraper_run_duration_seconds",
			Help:    "End-to-end duration of scrape runs.",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 10, 15},
		}),
	}

	reg.MustRegister(
		m.PagesScrapedTotal,
		m.RowsExtracted,
		m.CaptchaTotal,
		m.CacheHitsTotal,
		m.ScrapeDuration,
	)
	return m
}

// PageScraped records a page load outcome. Nil-safe so components can
// run without a metrics bundle in tests.
func (m *Metrics) PageScraped(platform, status string) {
	if m == nil {
		return
	}
	m.PagesScrapedTotal.WithLabelValues(platform, status).Inc()
}

func (m *Metrics) RowsAdded(platform string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsExtracted.WithLabelValues(platform).Add(float64(n))
}

func (m *Metrics) Captcha(platform string) {
	if m == nil {
		return
	}
	m.CaptchaTotal.WithLabelValues(platform).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheHitsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRun(seconds float64) {
	if m == nil {
		return
	}
	m.ScrapeDuration.Observe(seconds)
}

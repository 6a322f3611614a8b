package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dealscope/listing-scraper/internal/cache"
	"github.com/dealscope/listing-scraper/internal/match"
	"github.com/dealscope/listing-scraper/internal/metrics"
	"github.com/dealscope/listing-scraper/internal/models"
	"github.com/dealscope/listing-scraper/internal/scrape"
	"github.com/dealscope/listing-scraper/internal/trace"
)

// Runner executes a scrape run. The production implementation is
// scrape.Service; tests substitute a stub.
type Runner interface {
	Run(ctx context.Context, req scrape.Request) (*scrape.Result, error)
}

type Handler struct {
	runner  Runner
	matcher *match.Matcher
	cache   cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHandler(runner Runner, matcher *match.Matcher, c cache.Cache, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runner:  runner,
		matcher: matcher,
		cache:   c,
		metrics: m,
		logger:  logger.With("component", "api"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/v1/scrape", h.Scrape)
	r.Get("/api/v1/presets", h.Presets)
}

type scrapeResponse struct {
	OK              bool                `json:"ok"`
	Count           int                 `json:"count"`
	Rows            []models.Row        `json:"rows"`
	Captcha         models.CaptchaFlags `json:"captcha"`
	Matches         []models.MatchPair  `json:"matches,omitempty"`
	Debug           []string            `json:"debug,omitempty"`
	DebugScreenshot string              `json:"debug_screenshot,omitempty"`
}

// errorResponse keeps error and message as plain strings; consumers
// render them directly.
type errorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Scrape runs the pipeline for the requested targets and returns the
// merged row set.
func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	targets, err := h.buildTargets(q)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if len(targets) == 0 {
		h.writeError(w, http.StatusBadRequest, "no_target", "provide amazon_url, flipkart_url or preset")
		return
	}

	debug := qBool(q, "debug")
	debugShot := qBool(q, "debug_shot")

	req := scrape.Request{
		Targets:      targets,
		MaxPages:     qInt(q, "max_pages"),
		PerListLimit: qInt(q, "per_list_limit"),
		PDPPrices:    qBool(q, "pdp_prices"),
		DebugShot:    debugShot,
		Trace:        trace.New(debug),
	}
	if ms := qInt(q, "hard_limit_ms"); ms > 0 {
		req.HardLimit = time.Duration(ms) * time.Millisecond
	}
	if ms := qInt(q, "timeout_ms"); ms > 0 {
		req.NavTimeout = time.Duration(ms) * time.Millisecond
	}
	wantMatches := qBool(q, "match")

	// Debug runs bypass the cache: their payloads are per-run.
	cacheable := h.cache != nil && !debug && !debugShot
	key := cache.Key(
		q.Get("amazon_url"), q.Get("flipkart_url"), q.Get("preset"), q.Get("category"),
		q.Get("max_pages"), q.Get("per_list_limit"), q.Get("timeout_ms"),
		q.Get("hard_limit_ms"), q.Get("pdp_prices"), q.Get("match"),
	)
	if cacheable {
		if body, ok := h.cache.Get(r.Context(), key); ok {
			h.metrics.CacheLookup(true)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
		h.metrics.CacheLookup(false)
	}

	res, err := h.runner.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, scrape.ErrBrowserLaunch) {
			h.writeError(w, http.StatusInternalServerError, "browser_launch_failed", "could not start browser")
			return
		}
		h.logger.Error("scrape run failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "scrape run failed")
		return
	}

	resp := scrapeResponse{
		OK:              true,
		Count:           len(res.Rows),
		Rows:            res.Rows,
		Captcha:         res.Captcha,
		Debug:           req.Trace.Dump(),
		DebugScreenshot: res.Screenshot,
	}
	if resp.Rows == nil {
		resp.Rows = []models.Row{}
	}
	if wantMatches && h.matcher != nil {
		resp.Matches = h.matcher.Pairs(res.Rows)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "internal_error", "response encoding failed")
		return
	}
	// Captcha-tainted results are partial; caching them would pin the
	// bad run for the whole TTL.
	if cacheable && !res.Captcha.Flipkart {
		h.cache.Set(r.Context(), key, body)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Presets lists the built-in category presets.
func (h *Handler) Presets(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"presets": scrape.PresetNames(),
	})
}

// buildTargets assembles the target list from explicit URLs and/or a
// preset. Explicit URLs win over the preset's URL for their platform.
func (h *Handler) buildTargets(q url.Values) ([]scrape.Target, error) {
	category := q.Get("category")
	var targets []scrape.Target

	if name := q.Get("preset"); name != "" {
		preset, err := scrape.PresetTargets(name)
		if err != nil {
			return nil, err
		}
		targets = preset
	}

	setOrAppend := func(platform models.Platform, raw string) error {
		u, err := normalizeURL(raw)
		if err != nil {
			return err
		}
		if err := ensureAllowed(platform, u); err != nil {
			return err
		}
		for i := range targets {
			if targets[i].Platform == platform {
				targets[i].URL = u
				if category != "" {
					targets[i].Category = category
				}
				return nil
			}
		}
		targets = append(targets, scrape.Target{Platform: platform, URL: u, Category: category})
		return nil
	}

	if raw := q.Get("amazon_url"); raw != "" {
		if err := setOrAppend(models.PlatformAmazon, raw); err != nil {
			return nil, err
		}
	}
	if raw := q.Get("flipkart_url"); raw != "" {
		if err := setOrAppend(models.PlatformFlipkart, raw); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", errors.New("invalid url: " + raw)
	}
	return u.String(), nil
}

// ensureAllowed restricts scraping to the hosts this service is built
// for; anything else is refused rather than loaded blind.
func ensureAllowed(platform models.Platform, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url")
	}
	host := strings.ToLower(u.Hostname())
	switch platform {
	case models.PlatformAmazon:
		if strings.Contains(host, "amazon.") {
			return nil
		}
		return errors.New("amazon_url must point at an Amazon host")
	case models.PlatformFlipkart:
		if host == "flipkart.com" || strings.HasSuffix(host, ".flipkart.com") {
			return nil
		}
		return errors.New("flipkart_url must point at a Flipkart host")
	}
	return errors.New("unsupported platform")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func qInt(q url.Values, key string) int {
	if v := q.Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func qBool(q url.Values, key string) bool {
	switch strings.ToLower(q.Get(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

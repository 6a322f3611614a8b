package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/listing-scraper/internal/cache"
	"github.com/dealscope/listing-scraper/internal/match"
	"github.com/dealscope/listing-scraper/internal/models"
	"github.com/dealscope/listing-scraper/internal/parse"
	"github.com/dealscope/listing-scraper/internal/scrape"
)

type stubRunner struct {
	lastReq scrape.Request
	result  *scrape.Result
	err     error
	calls   int
}

func (s *stubRunner) Run(_ context.Context, req scrape.Request) (*scrape.Result, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestServer(t *testing.T, runner *stubRunner, c cache.Cache) *httptest.Server {
	t.Helper()
	if runner.result == nil && runner.err == nil {
		runner.result = &scrape.Result{}
	}
	h := NewHandler(runner, match.New(0), c, nil, nil)
	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func sampleRow(p models.Platform, title, url string) models.Row {
	r := models.NewRow(p, "https://example.com/search")
	r.ProductName = parse.String(title)
	r.ProductURL = url
	r.ListPosition = 1
	return r
}

func TestScrapeRequiresTarget(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scrape")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.False(t, body.OK)
	assert.Equal(t, "no_target", body.Error)
	assert.NotEmpty(t, body.Message)
}

func TestErrorFieldsAreStrings(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scrape")
	require.NoError(t, err)

	// Clients render the error field verbatim, so it must decode as a
	// plain string, never a nested object.
	var generic map[string]any
	decodeBody(t, resp, &generic)
	_, ok := generic["error"].(string)
	assert.True(t, ok)
}

func TestScrapeRejectsForeignHost(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scrape?amazon_url=https%3A%2F%2Fevil.example.com%2Fs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScrapeHappyPath(t *testing.T) {
	runner := &stubRunner{result: &scrape.Result{
		Rows: []models.Row{
			sampleRow(models.PlatformAmazon, "Samsung Galaxy M14 5G", "https://www.amazon.in/dp/B1"),
		},
	}}
	srv := newTestServer(t, runner, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scrape?amazon_url=www.amazon.in%2Fs%3Fk%3Dphones&per_list_limit=5")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body scrapeResponse
	decodeBody(t, resp, &body)
	assert.True(t, body.OK)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Rows, 1)
	assert.False(t, body.Captcha.Flipkart)

	// Scheme added, host verified, limit forwarded.
	require.Len(t, runner.lastReq.Targets, 1)
	assert.Equal(t, "https://www.amazon.in/s?k=phones", runner.lastReq.Targets[0].URL)
	assert.Equal(t, 5, runner.lastReq.PerListLimit)
}

func TestScrapePresetExpandsBothPlatforms(t *testing.T) {
	runner := &stubRunner{}
	srv := newTestServer(t, runner, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scrape?preset=mobiles")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, runner.lastReq.Targets, 2)
	assert.Equal(t, models.PlatformAmazon, runner.lastReq.Targets[0].Platform)
	assert.Equal(t, models.PlatformFlipkart, runner.lastReq.Targets[1].Platform)
	assert.Equal(t, "mobiles", runner.lastReq.Targets[0].Category)
}

func TestScrapeUnknownPreset(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scrape?preset=groceries")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScrapeHardLimitForwarded(t *testing.T) {
	runner := &stubRunner{}
	srv := newTestServer(t, runner, nil)

	_, err := http.Get(srv.URL + "/api/v1/scrape?preset=laptops&hard_limit_ms=4000&timeout_ms=2500")
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, runner.lastReq.HardLimit)
	assert.Equal(t, 2500*time.Millisecond, runner.lastReq.NavTimeout)
}

func TestScrapeCaptchaResultNotCached(t *testing.T) {
	runner := &stubRunner{result: &scrape.Result{
		Captcha: models.CaptchaFlags{Flipkart: true},
	}}
	srv := newTestServer(t, runner, cache.NewMemory(8, time.Minute))

	url := srv.URL + "/api/v1/scrape?preset=mobiles"
	for i := 0; i < 2; i++ {
		resp, err := http.Get(url)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, 2, runner.calls)
}

func TestScrapeBrowserLaunchFailure(t *testing.T) {
	runner := &stubRunner{err: scrape.ErrBrowserLaunch}
	srv := newTestServer(t, runner, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scrape?preset=mobiles")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "browser_launch_failed", body.Error)
}

func TestScrapeMatchesIncludedOnRequest(t *testing.T) {
	runner := &stubRunner{result: &scrape.Result{
		Rows: []models.Row{
			sampleRow(models.PlatformAmazon, "Samsung Galaxy M14 5G 128GB", "https://www.amazon.in/dp/B1"),
			sampleRow(models.PlatformFlipkart, "SAMSUNG Galaxy M14 5G 128GB", "https://www.flipkart.com/x/p/itm1"),
		},
	}}
	srv := newTestServer(t, runner, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scrape?preset=mobiles&match=1")
	require.NoError(t, err)

	var body scrapeResponse
	decodeBody(t, resp, &body)
	require.Len(t, body.Matches, 1)
	assert.Equal(t, 1.0, body.Matches[0].Score)
}

func TestScrapeCacheServesSecondRequest(t *testing.T) {
	runner := &stubRunner{result: &scrape.Result{
		Rows: []models.Row{
			sampleRow(models.PlatformAmazon, "Redmi 13C", "https://www.amazon.in/dp/B2"),
		},
	}}
	srv := newTestServer(t, runner, cache.NewMemory(8, time.Minute))

	url := srv.URL + "/api/v1/scrape?preset=mobiles"
	resp1, err := http.Get(url)
	require.NoError(t, err)
	resp1.Body.Close()

	resp2, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, "HIT", resp2.Header.Get("X-Cache"))

	var body scrapeResponse
	decodeBody(t, resp2, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 1, runner.calls)
}

func TestScrapeDebugBypassesCache(t *testing.T) {
	runner := &stubRunner{}
	srv := newTestServer(t, runner, cache.NewMemory(8, time.Minute))

	url := srv.URL + "/api/v1/scrape?preset=mobiles&debug=1"
	for i := 0; i < 2; i++ {
		resp, err := http.Get(url)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, 2, runner.calls)
}

func TestPresets(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/presets")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		OK      bool     `json:"ok"`
		Presets []string `json:"presets"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.OK)
	assert.Contains(t, body.Presets, "laptops")
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 9*time.Second, cfg.Scraper.HardLimit)
	assert.Equal(t, time.Second, cfg.Scraper.SafetyMargin)
	assert.Equal(t, 12, cfg.Scraper.PerListLimit)
	assert.Equal(t, 1, cfg.Scraper.MaxPages)
	assert.Equal(t, 4, cfg.Scraper.PDPConcurrency)
	assert.Equal(t, 0.55, cfg.Match.Threshold)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Scraper.EvenSplit)
	assert.NotEmpty(t, cfg.Browser.UserAgents)
}

func TestUserAgentPool(t *testing.T) {
	t.Setenv("BROWSER_USER_AGENTS", "agent-one, agent-two ,")

	cfg := Load()
	require.Equal(t, []string{"agent-one", "agent-two"}, cfg.Browser.UserAgents)

	for i := 0; i < 10; i++ {
		assert.Contains(t, cfg.Browser.UserAgents, cfg.Browser.RandomUserAgent())
	}

	empty := BrowserConfig{}
	assert.Empty(t, empty.RandomUserAgent())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SCRAPER_HARD_LIMIT", "15s")
	t.Setenv("SCRAPER_PER_LIST_LIMIT", "24")
	t.Setenv("MATCH_THRESHOLD", "0.7")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("SCRAPER_EVEN_SPLIT", "true")

	cfg := Load()
	assert.Equal(t, 15*time.Second, cfg.Scraper.HardLimit)
	assert.Equal(t, 24, cfg.Scraper.PerListLimit)
	assert.Equal(t, 0.7, cfg.Match.Threshold)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Scraper.EvenSplit)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SCRAPER_PER_LIST_LIMIT", "a dozen")
	t.Setenv("SCRAPER_HARD_LIMIT", "soon")

	cfg := Load()
	assert.Equal(t, 12, cfg.Scraper.PerListLimit)
	assert.Equal(t, 9*time.Second, cfg.Scraper.HardLimit)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	bad := Load()
	bad.Scraper.SafetyMargin = bad.Scraper.HardLimit
	assert.Error(t, bad.Validate())

	bad = Load()
	bad.Match.Threshold = 1.5
	assert.Error(t, bad.Validate())

	bad = Load()
	bad.Scraper.PDPConcurrency = 0
	assert.Error(t, bad.Validate())
}

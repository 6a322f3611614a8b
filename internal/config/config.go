package config

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Server  ServerConfig
	Scraper ScraperConfig
	Browser BrowserConfig
	Match   MatchConfig
	Cache   CacheConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	// HardLimit bounds a whole scrape run; SafetyMargin is reserved at
	// the end so the response is always assembled before the deadline.
	HardLimit    time.Duration
	SafetyMargin time.Duration

	// EvenSplit divides the usable budget across targets instead of
	// letting them race for the shared remainder.
	EvenSplit bool

	PerListLimit    int
	MaxPerListLimit int
	MaxPages        int
	MinCardsPerPage int

	PDPConcurrency int

	ScrollSteps int
	ScrollPause time.Duration
	MinWait     time.Duration
	MaxWait     time.Duration
}

type BrowserConfig struct {
	Headless   bool
	NavTimeout time.Duration
	UserAgents []string
}

// defaultUserAgents is the rotation pool; one entry is picked per
// browser context so consecutive runs do not share a fingerprint.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
}

// RandomUserAgent picks one entry from the pool, or "" when the pool
// is empty.
func (c BrowserConfig) RandomUserAgent() string {
	if len(c.UserAgents) == 0 {
		return ""
	}
	return c.UserAgents[rand.Intn(len(c.UserAgents))]
}

type MatchConfig struct {
	Threshold float64
}

type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
	MaxItems int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with sane
// defaults for local use.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", "8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			HardLimit:       getDurationOrDefault("SCRAPER_HARD_LIMIT", 9*time.Second),
			SafetyMargin:    getDurationOrDefault("SCRAPER_SAFETY_MARGIN", time.Second),
			EvenSplit:       getBoolOrDefault("SCRAPER_EVEN_SPLIT", false),
			PerListLimit:    getIntOrDefault("SCRAPER_PER_LIST_LIMIT", 12),
			MaxPerListLimit: getIntOrDefault("SCRAPER_MAX_PER_LIST_LIMIT", 50),
			MaxPages:        getIntOrDefault("SCRAPER_MAX_PAGES", 1),
			MinCardsPerPage: getIntOrDefault("SCRAPER_MIN_CARDS_PER_PAGE", 3),
			PDPConcurrency:  getIntOrDefault("SCRAPER_PDP_CONCURRENCY", 4),
			ScrollSteps:     getIntOrDefault("SCRAPER_SCROLL_STEPS", 2),
			ScrollPause:     getDurationOrDefault("SCRAPER_SCROLL_PAUSE", 150*time.Millisecond),
			MinWait:         getDurationOrDefault("SCRAPER_MIN_WAIT", 100*time.Millisecond),
			MaxWait:         getDurationOrDefault("SCRAPER_MAX_WAIT", 250*time.Millisecond),
		},
		Browser: BrowserConfig{
			Headless:   getBoolOrDefault("BROWSER_HEADLESS", true),
			NavTimeout: getDurationOrDefault("BROWSER_NAV_TIMEOUT", 8*time.Second),
			UserAgents: getSliceOrDefault("BROWSER_USER_AGENTS", defaultUserAgents),
		},
		Match: MatchConfig{
			Threshold: getFloatOrDefault("MATCH_THRESHOLD", 0.55),
		},
		Cache: CacheConfig{
			RedisURL: getEnvOrDefault("REDIS_URL", ""),
			TTL:      getDurationOrDefault("CACHE_TTL", 5*time.Minute),
			MaxItems: getIntOrDefault("CACHE_MAX_ITEMS", 256),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects configurations that would deadlock or stall a run.
func (c *Config) Validate() error {
	if c.Scraper.HardLimit <= 0 {
		return fmt.Errorf("scraper hard limit must be positive, got %s", c.Scraper.HardLimit)
	}
	if c.Scraper.SafetyMargin < 0 {
		return fmt.Errorf("scraper safety margin must not be negative, got %s", c.Scraper.SafetyMargin)
	}
	if c.Scraper.SafetyMargin >= c.Scraper.HardLimit {
		return fmt.Errorf("safety margin %s leaves no time inside hard limit %s", c.Scraper.SafetyMargin, c.Scraper.HardLimit)
	}
	if c.Scraper.PerListLimit <= 0 {
		return fmt.Errorf("per-list limit must be positive, got %d", c.Scraper.PerListLimit)
	}
	if c.Scraper.PDPConcurrency <= 0 {
		return fmt.Errorf("pdp concurrency must be positive, got %d", c.Scraper.PDPConcurrency)
	}
	if c.Match.Threshold <= 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("match threshold must be in (0,1], got %f", c.Match.Threshold)
	}
	if c.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser nav timeout must be positive, got %s", c.Browser.NavTimeout)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getSliceOrDefault reads a comma-separated list.
func getSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

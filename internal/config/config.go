// Package config loads the bot settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ModeDigest = "digest"
	ModeSingle = "single"

	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	// Telegram settings
	TelegramToken  string
	TelegramChatID string
	BotMode        string // "digest" or "single"

	// Feeds and filtering
	FeedsConfigPath   string
	LexiconPath       string // empty = embedded lexicon
	HomeCountry       string
	DomesticFeedTypes []string
	MaxNewsLimit      int
	NewsMaxAge        time.Duration
	SummaryMaxRunes   int

	// Sent store
	SentStore     string
	CacheFilePath string
	SQLitePath    string
	DatabaseURL   string
	CacheTTLHours int

	// Commodity prices
	PriceAPIURL   string
	PriceAPIKey   string
	PriceCodes    []string
	PriceRPS      float64
	PriceCacheTTL time.Duration

	// Gemini settings
	GeminiAPIKey      string
	MaxGeminiRequests int // per run, 0 = unlimited

	// Scraper settings
	ScrapeMaxArticles int

	// Output
	OutputFeedPath  string
	OutputFeedTitle string
	OutputFeedLink  string

	// App settings
	DryRun         bool
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
		BotMode:        strings.ToLower(getEnvOrDefault("BOT_MODE", ModeDigest)),

		FeedsConfigPath:   getEnvOrDefault("FEEDS_CONFIG_PATH", "configs/feeds.yaml"),
		LexiconPath:       os.Getenv("LEXICON_PATH"),
		HomeCountry:       getEnvOrDefault("HOME_COUNTRY", "Thailand"),
		DomesticFeedTypes: getEnvListOrDefault("DOMESTIC_FEED_TYPES", []string{"domestic", "thai"}),
		MaxNewsLimit:      getEnvIntOrDefault("MAX_NEWS_LIMIT", 8),
		NewsMaxAge:        time.Duration(getEnvIntOrDefault("NEWS_MAX_AGE_HOURS", 24)) * time.Hour,
		SummaryMaxRunes:   getEnvIntOrDefault("SUMMARY_MAX_RUNES", 300),

		SentStore:     strings.ToLower(getEnvOrDefault("SENT_STORE", StoreFile)),
		CacheFilePath: getEnvOrDefault("CACHE_FILE_PATH", "sent_news.json"),
		SQLitePath:    getEnvOrDefault("SQLITE_PATH", "sent_news.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CacheTTLHours: getEnvIntOrDefault("CACHE_TTL_HOURS", 72),

		PriceAPIURL:   getEnvOrDefault("PRICE_API_URL", "https://api.oilpriceapi.com/v1"),
		PriceAPIKey:   os.Getenv("PRICE_API_KEY"),
		PriceCodes:    getEnvListOrDefault("PRICE_CODES", []string{"BRENT_CRUDE_USD", "WTI_USD", "NATURAL_GAS_USD"}),
		PriceRPS:      getEnvFloatOrDefault("PRICE_RPS", 2),
		PriceCacheTTL: time.Duration(getEnvIntOrDefault("PRICE_CACHE_TTL_MINUTES", 30)) * time.Minute,

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		MaxGeminiRequests: getEnvIntOrDefault("MAX_GEMINI_REQUESTS", 3),

		ScrapeMaxArticles: getEnvIntOrDefault("SCRAPE_MAX_ARTICLES", 5),
		OutputFeedPath:    os.Getenv("OUTPUT_FEED_PATH"),
		OutputFeedTitle:   getEnvOrDefault("OUTPUT_FEED_TITLE", "Energy News Digest"),
		OutputFeedLink:    os.Getenv("OUTPUT_FEED_LINK"),

		DryRun:         os.Getenv("DRY_RUN") == "true",
		Debug:          os.Getenv("DEBUG") == "true",
		RequestTimeout: getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		RetryAttempts:  getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryDelay:     getEnvDurationOrDefault("RETRY_DELAY", 2*time.Second),
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("45s") or plain seconds ("45").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
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

func (c *Config) Validate() error {
	if !c.DryRun {
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required")
		}
		if c.TelegramChatID == "" {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required")
		}
	}
	if c.BotMode != ModeDigest && c.BotMode != ModeSingle {
		return fmt.Errorf("BOT_MODE must be '%s' or '%s'", ModeDigest, ModeSingle)
	}
	switch c.SentStore {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SENT_STORE=postgres")
		}
	default:
		return fmt.Errorf("SENT_STORE must be one of file, sqlite, postgres")
	}
	if c.MaxNewsLimit <= 0 {
		return fmt.Errorf("MAX_NEWS_LIMIT must be positive")
	}
	if c.PriceRPS <= 0 {
		return fmt.Errorf("PRICE_RPS must be positive")
	}
	return nil
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeDigest, cfg.BotMode)
	assert.Equal(t, "Thailand", cfg.HomeCountry)
	assert.Equal(t, []string{"domestic", "thai"}, cfg.DomesticFeedTypes)
	assert.Equal(t, 8, cfg.MaxNewsLimit)
	assert.Equal(t, 24*time.Hour, cfg.NewsMaxAge)
	assert.Equal(t, StoreFile, cfg.SentStore)
	assert.Equal(t, []string{"BRENT_CRUDE_USD", "WTI_USD", "NATURAL_GAS_USD"}, cfg.PriceCodes)
	assert.Equal(t, 30*time.Minute, cfg.PriceCacheTTL)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DRY_RUN", "true")
	t.Setenv("BOT_MODE", "Single")
	t.Setenv("DOMESTIC_FEED_TYPES", " local , , thai ")
	t.Setenv("REQUEST_TIMEOUT", "45")
	t.Setenv("RETRY_DELAY", "750ms")
	t.Setenv("PRICE_RPS", "0.5")
	t.Setenv("SENT_STORE", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, ModeSingle, cfg.BotMode)
	assert.Equal(t, []string{"local", "thai"}, cfg.DomesticFeedTypes)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 0.5, cfg.PriceRPS)
	assert.Equal(t, StoreSQLite, cfg.SentStore)
}

func TestValidate(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	_, err := Load()
	assert.ErrorContains(t, err, "TELEGRAM_TOKEN")

	t.Setenv("DRY_RUN", "true")
	t.Setenv("SENT_STORE", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("SENT_STORE", "redis")
	_, err = Load()
	assert.ErrorContains(t, err, "SENT_STORE")

	t.Setenv("SENT_STORE", "file")
	t.Setenv("BOT_MODE", "multiple")
	_, err = Load()
	assert.ErrorContains(t, err, "BOT_MODE")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Venues, 3)
	assert.Equal(t, 0.2, cfg.Detector.MinProfitPct)
	assert.Equal(t, 5*time.Second, cfg.Detector.MaxAge.Duration)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, 0, cfg.Ledger.MaxEntries)

	cb, ok := cfg.Venue("coinbase")
	require.True(t, ok)
	assert.Equal(t, 0.6, cb.FeePct)

	_, ok = cfg.Venue("kraken")
	assert.False(t, ok)
}

func TestFeeTable(t *testing.T) {
	cfg := Defaults()
	fees := cfg.FeeTable()
	assert.Equal(t, 0.6, fees["coinbase"])
	assert.Equal(t, 0.1, fees["binance"])
	assert.Equal(t, 0.5, fees["bitstamp"])
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Venues = cfg.Venues[:1]
	cfg.Venues[0].WSURL = "http://not-a-websocket"
	cfg.Venues[0].FeePct = -1
	cfg.Detector.MaxAge.Duration = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "unknown mode")
	assert.Contains(t, msg, "need at least 2 venues")
	assert.Contains(t, msg, "ws_url")
	assert.Contains(t, msg, "fee_pct")
	assert.Contains(t, msg, "max_age")
}

func TestValidateDuplicateVenue(t *testing.T) {
	cfg := Defaults()
	cfg.Venues = append(cfg.Venues, cfg.Venues[0])

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate name")
}

func TestValidateTelegramPair(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "token-only"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
}

func TestValidateRateLimitRequiresRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Server.RateLimitPerMin = 120
	cfg.Redis.Enabled = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_per_min requires redis.enabled")

	cfg.Redis.Enabled = true
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "detect"
log_level = "debug"

[[venues]]
name = "coinbase"
ws_url = "wss://ws-feed.exchange.coinbase.com"
fee_pct = 0.6
symbols = ["BTC-USD"]

[[venues]]
name = "bitstamp"
ws_url = "wss://ws.bitstamp.net"
fee_pct = 0.5
symbols = ["btcusd"]

[detector]
min_profit_pct = 0.75
max_age = "2s"

[ledger]
max_entries = 1000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// The file's venue list replaces the default set entirely.
	assert.Len(t, cfg.Venues, 2)
	assert.Equal(t, "detect", cfg.Mode)
	assert.Equal(t, 0.75, cfg.Detector.MinProfitPct)
	assert.Equal(t, 2*time.Second, cfg.Detector.MaxAge.Duration)
	assert.Equal(t, 1000, cfg.Ledger.MaxEntries)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "BTC-USD", cfg.Symbols["btcusd"])
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadMissingDefaultPathUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(t.TempDir()))

	cfg, err := Load("config.toml")
	require.NoError(t, err)
	assert.Len(t, cfg.Venues, 3)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARBSCAN_DETECTOR_MIN_PROFIT_PCT", "1.25")
	t.Setenv("ARBSCAN_DETECTOR_MAX_AGE", "30s")
	t.Setenv("ARBSCAN_MODE", "detect")
	t.Setenv("ARBSCAN_REDIS_ENABLED", "true")
	t.Setenv("ARBSCAN_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("ARBSCAN_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 1.25, cfg.Detector.MinProfitPct)
	assert.Equal(t, 30*time.Second, cfg.Detector.MaxAge.Duration)
	assert.Equal(t, "detect", cfg.Mode)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestEnvOverridesIgnoreMalformed(t *testing.T) {
	t.Setenv("ARBSCAN_DETECTOR_MIN_PROFIT_PCT", "not-a-float")
	t.Setenv("ARBSCAN_FEED_MAX_RECONNECT_ATTEMPTS", "many")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 0.2, cfg.Detector.MinProfitPct)
	assert.Equal(t, 5, cfg.Feed.MaxReconnectAttempts)
}

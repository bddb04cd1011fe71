// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBSCAN_* environment
// variables.
type Config struct {
	Venues   []VenueConfig     `toml:"venues"`
	Symbols  map[string]string `toml:"symbols"` // venue-local -> canonical
	Detector DetectorConfig    `toml:"detector"`
	Feed     FeedConfig        `toml:"feed"`
	Ledger   LedgerConfig      `toml:"ledger"`
	Redis    RedisConfig       `toml:"redis"`
	Postgres PostgresConfig    `toml:"postgres"`
	S3       S3Config          `toml:"s3"`
	Server   ServerConfig      `toml:"server"`
	Notify   NotifyConfig      `toml:"notify"`
	Mode     string            `toml:"mode"`
	LogLevel string            `toml:"log_level"`
}

// VenueConfig describes one market-data feed: endpoint, taker fee, and the
// venue-local symbols to subscribe to. Loaded once at startup and read-only
// thereafter.
type VenueConfig struct {
	Name    string   `toml:"name"`
	WSURL   string   `toml:"ws_url"`
	FeePct  float64  `toml:"fee_pct"` // taker fee percentage
	Symbols []string `toml:"symbols"` // venue-local identifiers
}

// DetectorConfig holds the profitability and freshness thresholds.
type DetectorConfig struct {
	// MinProfitPct is the minimum profit after fees (percent) for an
	// opportunity to be emitted.
	MinProfitPct float64 `toml:"min_profit_pct"`
	// MaxAge is the strict staleness cutoff for observations entering a
	// pairing. An observation aged exactly MaxAge is excluded.
	MaxAge duration `toml:"max_age"`
	// SinkBuffer is the dispatch queue depth for external opportunity sinks.
	// When the queue is full, opportunities are dropped for those sinks
	// rather than stalling ingestion.
	SinkBuffer int `toml:"sink_buffer"`
}

// FeedConfig holds connection lifecycle parameters shared by all adapters.
type FeedConfig struct {
	// ReconnectBase is the first backoff delay; it doubles per attempt.
	ReconnectBase duration `toml:"reconnect_base"`
	// ReconnectMax caps the doubled delay. 0 leaves it uncapped.
	ReconnectMax duration `toml:"reconnect_max"`
	// MaxReconnectAttempts is the cumulative per-adapter retry budget.
	// Exceeding it marks the adapter failed without restarting siblings.
	MaxReconnectAttempts int `toml:"max_reconnect_attempts"`
	// ShutdownTimeout bounds how long Stop waits for adapters to exit.
	ShutdownTimeout duration `toml:"shutdown_timeout"`
	// SubscriberBuffer is the channel depth for observation subscribers.
	SubscriberBuffer int `toml:"subscriber_buffer"`
}

// LedgerConfig holds opportunity ledger parameters.
type LedgerConfig struct {
	// MaxEntries caps the ledger as a ring buffer. 0 keeps it unbounded for
	// the process lifetime; capping changes query results for windows that
	// reach past the cap.
	MaxEntries int `toml:"max_entries"`
	// TopPairs is how many venue pairs Statistics ranks.
	TopPairs int `toml:"top_pairs"`
}

// RedisConfig holds parameters for the optional price mirror / event
// publisher.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds parameters for the optional opportunity archive.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds parameters for the optional opportunity window export.
type S3Config struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	Prefix         string   `toml:"prefix"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	ExportInterval duration `toml:"export_interval"`
}

// ServerConfig holds HTTP read-API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects the read API when set; empty disables authentication.
	APIKey string `toml:"api_key"`
	// RateLimitPerMin caps requests per client IP per minute. Requires Redis;
	// 0 disables rate limiting.
	RateLimitPerMin int `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
	// MinProfitPct filters alerts below this profit; 0 alerts on everything
	// the detector emits.
	MinProfitPct float64 `toml:"min_profit_pct"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the built-in venue set and
// thresholds. These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Venues: []VenueConfig{
			{
				Name:    "coinbase",
				WSURL:   "wss://ws-feed.exchange.coinbase.com",
				FeePct:  0.6,
				Symbols: []string{"BTC-USD", "ETH-USD", "SOL-USD"},
			},
			{
				Name:    "binance",
				WSURL:   "wss://stream.binance.us:9443/ws",
				FeePct:  0.1,
				Symbols: []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
			},
			{
				Name:    "bitstamp",
				WSURL:   "wss://ws.bitstamp.net",
				FeePct:  0.5,
				Symbols: []string{"btcusd", "ethusd", "solusd"},
			},
		},
		Symbols: map[string]string{
			"BTCUSDT": "BTC-USD",
			"ETHUSDT": "ETH-USD",
			"SOLUSDT": "SOL-USD",
			"btcusd":  "BTC-USD",
			"ethusd":  "ETH-USD",
			"solusd":  "SOL-USD",
		},
		Detector: DetectorConfig{
			MinProfitPct: 0.2,
			MaxAge:       duration{5 * time.Second},
			SinkBuffer:   256,
		},
		Feed: FeedConfig{
			ReconnectBase:        duration{2 * time.Second},
			ReconnectMax:         duration{60 * time.Second},
			MaxReconnectAttempts: 5,
			ShutdownTimeout:      duration{10 * time.Second},
			SubscriberBuffer:     256,
		},
		Ledger: LedgerConfig{
			MaxEntries: 0,
			TopPairs:   5,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Region:         "us-east-1",
			Bucket:         "arbscan-data",
			Prefix:         "opportunities",
			UseSSL:         true,
			ExportInterval: duration{5 * time.Minute},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"detect": true, // feeds + detection only
	"server": true, // detection plus the HTTP read API
	"full":   true, // everything enabled in config
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found. Configuration problems
// are fatal at startup only; nothing re-validates at runtime.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: detect, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Venues) < 2 {
		errs = append(errs, fmt.Sprintf("venues: need at least 2 venues to detect cross-venue spreads, got %d", len(c.Venues)))
	}
	seen := make(map[string]bool, len(c.Venues))
	for i, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: name must not be empty", i))
			continue
		}
		if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("venues: duplicate name %q", v.Name))
		}
		seen[v.Name] = true
		if !strings.HasPrefix(v.WSURL, "ws://") && !strings.HasPrefix(v.WSURL, "wss://") {
			errs = append(errs, fmt.Sprintf("venues[%s]: ws_url must be a ws:// or wss:// endpoint, got %q", v.Name, v.WSURL))
		}
		if v.FeePct < 0 {
			errs = append(errs, fmt.Sprintf("venues[%s]: fee_pct must not be negative", v.Name))
		}
		if len(v.Symbols) == 0 {
			errs = append(errs, fmt.Sprintf("venues[%s]: at least one symbol is required", v.Name))
		}
	}

	if c.Detector.MinProfitPct < 0 {
		errs = append(errs, "detector: min_profit_pct must not be negative")
	}
	if c.Detector.MaxAge.Duration <= 0 {
		errs = append(errs, "detector: max_age must be positive")
	}
	if c.Detector.SinkBuffer < 1 {
		errs = append(errs, "detector: sink_buffer must be >= 1")
	}

	if c.Feed.ReconnectBase.Duration <= 0 {
		errs = append(errs, "feed: reconnect_base must be positive")
	}
	if c.Feed.MaxReconnectAttempts < 1 {
		errs = append(errs, "feed: max_reconnect_attempts must be >= 1")
	}
	if c.Feed.ShutdownTimeout.Duration <= 0 {
		errs = append(errs, "feed: shutdown_timeout must be positive")
	}
	if c.Feed.SubscriberBuffer < 1 {
		errs = append(errs, "feed: subscriber_buffer must be >= 1")
	}

	if c.Ledger.MaxEntries < 0 {
		errs = append(errs, "ledger: max_entries must not be negative")
	}
	if c.Ledger.TopPairs < 1 {
		errs = append(errs, "ledger: top_pairs must be >= 1")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.ExportInterval.Duration <= 0 {
			errs = append(errs, "s3: export_interval must be positive when enabled")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMin < 0 {
			errs = append(errs, "server: rate_limit_per_min must not be negative")
		}
		if c.Server.RateLimitPerMin > 0 && !c.Redis.Enabled {
			errs = append(errs, "server: rate_limit_per_min requires redis.enabled = true (the limiter is redis-backed)")
		}
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Venue returns the configuration for the named venue, or false when the
// venue is unknown.
func (c *Config) Venue(name string) (VenueConfig, bool) {
	for _, v := range c.Venues {
		if v.Name == name {
			return v, true
		}
	}
	return VenueConfig{}, false
}

// FeeTable returns venue name -> taker fee pct for the detector.
func (c *Config) FeeTable() map[string]float64 {
	fees := make(map[string]float64, len(c.Venues))
	for _, v := range c.Venues {
		fees[v.Name] = v.FeePct
	}
	return fees
}

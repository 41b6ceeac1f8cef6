// Package config defines all configuration for the arbitrage scanner.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via ARB_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Kalshi     KalshiConfig     `mapstructure:"kalshi"`
	Scanner    ScannerConfig    `mapstructure:"scanner"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Arb        ArbConfig        `mapstructure:"arb"`
	Mappings   MappingsConfig   `mapstructure:"mappings"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

// PolymarketConfig holds the Gamma (event discovery) and CLOB (order book)
// endpoints plus the public market WebSocket.
type PolymarketConfig struct {
	GammaBaseURL string `mapstructure:"gamma_base_url"`
	CLOBBaseURL  string `mapstructure:"clob_base_url"`
	WSMarketURL  string `mapstructure:"ws_market_url"`
}

// KalshiConfig holds the trade API endpoints and WebSocket credentials.
// The WS requires an API key id and the private key used to sign the
// connection; REST event and orderbook reads are public.
type KalshiConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	WSURL        string  `mapstructure:"ws_url"`
	APIKeyID     string  `mapstructure:"api_key_id"`
	PrivateKey   string  `mapstructure:"private_key"`
	RequestsPerS float64 `mapstructure:"requests_per_s"`
}

// ScannerConfig tunes the batch scan loop.
type ScannerConfig struct {
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	ScanTimeout          time.Duration `mapstructure:"scan_timeout"`
	RateLimitDelay       time.Duration `mapstructure:"rate_limit_delay"`
	MaxConcurrent        int           `mapstructure:"max_concurrent"`
	MaxRetries           int           `mapstructure:"max_retries"`
	RetryBackoffBase     time.Duration `mapstructure:"retry_backoff_base"`
	DynamicScanDays      int           `mapstructure:"dynamic_scan_days"`
	MaxLiquidityAnalysis int           `mapstructure:"max_liquidity_analysis"`
	MinSuccessRatio      float64       `mapstructure:"min_success_ratio"`
}

// StreamConfig tunes the real-time engine.
type StreamConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Debounce      time.Duration `mapstructure:"debounce"`
	NotifyBuffer  int           `mapstructure:"notify_buffer"`
	SpreadEpsilon float64       `mapstructure:"spread_epsilon"`
}

// ArbConfig carries the pricing thresholds, all percentages except
// min_guaranteed which is a price fraction.
type ArbConfig struct {
	MinGuaranteed float64 `mapstructure:"min_guaranteed"`
	MinSpreadPct  float64 `mapstructure:"min_spread_pct"`
	MinProfitPct  float64 `mapstructure:"min_profit_pct"`
	PolyFeePct    float64 `mapstructure:"poly_fee_pct"`
	KalshiFeePct  float64 `mapstructure:"kalshi_fee_pct"`
}

// MappingsConfig points at the pair-resolver data files.
type MappingsConfig struct {
	MarketMappings string `mapstructure:"market_mappings"`
	Teams          string `mapstructure:"teams"`
}

// StoreConfig sets where the fuzzy-match cache is persisted.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the snapshot HTTP server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: ARB_KALSHI_API_KEY_ID, ARB_KALSHI_PRIVATE_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override sensitive fields from env
	if id := os.Getenv("ARB_KALSHI_API_KEY_ID"); id != "" {
		cfg.Kalshi.APIKeyID = id
	}
	if key := os.Getenv("ARB_KALSHI_PRIVATE_KEY"); key != "" {
		cfg.Kalshi.PrivateKey = key
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("polymarket.gamma_base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.clob_base_url", "https://clob.polymarket.com")
	v.SetDefault("polymarket.ws_market_url", "wss://ws-subscriptions-clob.polymarket.com/ws/market")
	v.SetDefault("kalshi.base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("kalshi.ws_url", "wss://api.elections.kalshi.com/trade-api/ws/v2")
	v.SetDefault("kalshi.requests_per_s", 5.0)

	v.SetDefault("scanner.poll_interval", 60*time.Second)
	v.SetDefault("scanner.scan_timeout", 30*time.Second)
	v.SetDefault("scanner.rate_limit_delay", 150*time.Millisecond)
	v.SetDefault("scanner.max_concurrent", 8)
	v.SetDefault("scanner.max_retries", 3)
	v.SetDefault("scanner.retry_backoff_base", 100*time.Millisecond)
	v.SetDefault("scanner.dynamic_scan_days", 3)
	v.SetDefault("scanner.max_liquidity_analysis", 25)
	v.SetDefault("scanner.min_success_ratio", 0.5)

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.debounce", 100*time.Millisecond)
	v.SetDefault("stream.notify_buffer", 256)
	v.SetDefault("stream.spread_epsilon", 0.001)

	v.SetDefault("arb.min_guaranteed", 0.0)
	v.SetDefault("arb.min_spread_pct", 2.0)
	v.SetDefault("arb.min_profit_pct", 1.0)
	v.SetDefault("arb.poly_fee_pct", 2.0)
	v.SetDefault("arb.kalshi_fee_pct", 1.0)

	v.SetDefault("mappings.market_mappings", "configs/market-mappings.json")
	v.SetDefault("mappings.teams", "configs/teams.json")
	v.SetDefault("store.data_dir", "data")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.port", 8080)
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Polymarket.GammaBaseURL == "" {
		return fmt.Errorf("polymarket.gamma_base_url is required")
	}
	if c.Polymarket.CLOBBaseURL == "" {
		return fmt.Errorf("polymarket.clob_base_url is required")
	}
	if c.Kalshi.BaseURL == "" {
		return fmt.Errorf("kalshi.base_url is required")
	}
	if c.Stream.Enabled && (c.Kalshi.APIKeyID == "" || c.Kalshi.PrivateKey == "") {
		return fmt.Errorf("kalshi.api_key_id and kalshi.private_key are required for streaming (set ARB_KALSHI_API_KEY_ID / ARB_KALSHI_PRIVATE_KEY)")
	}
	if c.Scanner.PollInterval <= 0 {
		return fmt.Errorf("scanner.poll_interval must be > 0")
	}
	if c.Scanner.MaxConcurrent <= 0 {
		return fmt.Errorf("scanner.max_concurrent must be > 0")
	}
	if c.Scanner.MinSuccessRatio < 0 || c.Scanner.MinSuccessRatio > 1 {
		return fmt.Errorf("scanner.min_success_ratio must be in [0,1]")
	}
	if c.Arb.MinProfitPct < 0 {
		return fmt.Errorf("arb.min_profit_pct must be >= 0")
	}
	if c.Mappings.MarketMappings == "" || c.Mappings.Teams == "" {
		return fmt.Errorf("mappings.market_mappings and mappings.teams are required")
	}
	return nil
}

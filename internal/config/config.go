// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "MEMESNIPER"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Trade     TradeConfig     `mapstructure:"trade"`
	Whale     WhaleConfig     `mapstructure:"whale"`
	Scalper   ScalperConfig   `mapstructure:"scalper"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Twitter   TwitterConfig   `mapstructure:"twitter"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Market    MarketConfig    `mapstructure:"market"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ServerConfig struct {
	Addr              string  `mapstructure:"addr"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Debug      bool   `mapstructure:"debug"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TradeConfig holds the execution defaults; tradeAmount, stopLoss and
// riskReward seed the settings store and are overridden by it afterwards.
type TradeConfig struct {
	TradeAmount          float64 `mapstructure:"trade_amount"`
	StopLoss             float64 `mapstructure:"stop_loss"`
	RiskReward           float64 `mapstructure:"risk_reward"`
	SlippageMin          float64 `mapstructure:"slippage_min"`
	SlippageMax          float64 `mapstructure:"slippage_max"`
	TakeProfitMultiplier float64 `mapstructure:"take_profit_multiplier"`
	MoonbagPercentage    float64 `mapstructure:"moonbag_percentage"`
	PriorityFee          float64 `mapstructure:"priority_fee"`
	MaxRiskPercent       float64 `mapstructure:"max_risk_percent"`
	BasePrice            float64 `mapstructure:"base_price"`
	PriceJitter          float64 `mapstructure:"price_jitter"`
	OpenOrderLimit       int     `mapstructure:"open_order_limit"`
}

type WhaleConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Capacity    int           `mapstructure:"capacity"`
	Probability float64       `mapstructure:"probability"`
	MinAmount   float64       `mapstructure:"min_amount"`
	MaxAmount   float64       `mapstructure:"max_amount"`
}

type ScalperConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	Probability float64       `mapstructure:"probability"`
	BasePrice   float64       `mapstructure:"base_price"`
	Symbol      string        `mapstructure:"symbol"`
}

type FeedConfig struct {
	Mode            string        `mapstructure:"mode"`
	StreamURL       string        `mapstructure:"stream_url"`
	Interval        time.Duration `mapstructure:"interval"`
	TrackedAccounts []string      `mapstructure:"tracked_accounts"`
	MaxRetries      uint          `mapstructure:"max_retries"`
}

type TwitterConfig struct {
	BearerToken string        `mapstructure:"bearer_token"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type BroadcastConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

type RelayConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

type MarketConfig struct {
	TopTradersURL string        `mapstructure:"top_traders_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

const (
	FeedModeSimulated = "simulated"
	FeedModeStream    = "stream"
)

const (
	DefaultAddr             = ":8000"
	DefaultTradeAmount      = 0.5
	DefaultStopLoss         = 5.0
	DefaultRiskReward       = 3.0
	DefaultWhaleCapacity    = 50
	DefaultSubscriberBuffer = 64
	DefaultShutdownTimeout  = 10 * time.Second
)

var defaultTrackedAccounts = []string{"elonmusk", "cz_binance", "solana", "raydium_io"}

// LoadConfig reads an optional config file, then `.env` and MEMESNIPER_*
// environment variables on top of the defaults. An empty path means
// defaults plus environment only.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Feed.TrackedAccounts = normalizeList(cfg.Feed.TrackedAccounts)

	return &cfg, validateConfig(&cfg)
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"server.addr":                  DefaultAddr,
		"server.requests_per_second":   20.0,
		"server.burst":                 40,
		"log.debug":                    false,
		"log.file":                     "",
		"log.max_size_mb":              50,
		"log.max_backups":              3,
		"log.max_age_days":             7,
		"trade.trade_amount":           DefaultTradeAmount,
		"trade.stop_loss":              DefaultStopLoss,
		"trade.risk_reward":            DefaultRiskReward,
		"trade.slippage_min":           15.0,
		"trade.slippage_max":           25.0,
		"trade.take_profit_multiplier": 10.0,
		"trade.moonbag_percentage":     15.0,
		"trade.priority_fee":           0.01,
		"trade.max_risk_percent":       2.0,
		"trade.base_price":             1.0,
		"trade.price_jitter":           5.0,
		"trade.open_order_limit":       100,
		"whale.interval":               15 * time.Second,
		"whale.capacity":               DefaultWhaleCapacity,
		"whale.probability":            1.0,
		"whale.min_amount":             10.0,
		"whale.max_amount":             200.0,
		"scalper.enabled":              false,
		"scalper.interval":             5 * time.Second,
		"scalper.probability":          0.3,
		"scalper.base_price":           1.0,
		"scalper.symbol":               "SCALP",
		"feed.mode":                    FeedModeSimulated,
		"feed.stream_url":              "",
		"feed.interval":                10 * time.Second,
		"feed.tracked_accounts":        defaultTrackedAccounts,
		"feed.max_retries":             0,
		"twitter.bearer_token":         "",
		"twitter.base_url":             "https://api.twitter.com",
		"twitter.timeout":              10 * time.Second,
		"broadcast.subscriber_buffer":  DefaultSubscriberBuffer,
		"relay.amqp_url":               "",
		"relay.exchange":               "memesniper.events",
		"market.top_traders_url":       "https://api.dexscreener.com/latest/dex/top-traders",
		"market.timeout":               5 * time.Second,
		"shutdown_timeout":             DefaultShutdownTimeout,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is empty")
	}
	if err := validateTrade(&cfg.Trade); err != nil {
		return err
	}
	if cfg.Whale.Interval <= 0 {
		return errors.New("invalid whale.interval")
	}
	if cfg.Whale.Capacity <= 0 {
		return errors.New("invalid whale.capacity")
	}
	if cfg.Whale.Probability < 0 || cfg.Whale.Probability > 1 {
		return errors.New("whale.probability must be within [0,1]")
	}
	if cfg.Whale.MinAmount <= 0 || cfg.Whale.MaxAmount < cfg.Whale.MinAmount {
		return errors.New("invalid whale amount range")
	}
	if cfg.Scalper.Enabled {
		if cfg.Scalper.Interval <= 0 {
			return errors.New("invalid scalper.interval")
		}
		if cfg.Scalper.Probability < 0 || cfg.Scalper.Probability > 1 {
			return errors.New("scalper.probability must be within [0,1]")
		}
		if cfg.Scalper.BasePrice <= 0 {
			return errors.New("invalid scalper.base_price")
		}
	}
	switch cfg.Feed.Mode {
	case FeedModeSimulated:
		if cfg.Feed.Interval <= 0 {
			return errors.New("invalid feed.interval")
		}
	case FeedModeStream:
		if err := validateURLWithCache(cfg.Feed.StreamURL, "ws"); err != nil {
			return fmt.Errorf("feed.stream_url: %w", err)
		}
	default:
		return fmt.Errorf("unknown feed.mode %q", cfg.Feed.Mode)
	}
	if cfg.Broadcast.SubscriberBuffer <= 0 {
		return errors.New("invalid broadcast.subscriber_buffer")
	}
	if cfg.Relay.AMQPURL != "" {
		if err := validateURLWithCache(cfg.Relay.AMQPURL, "amqp"); err != nil {
			return fmt.Errorf("relay.amqp_url: %w", err)
		}
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("invalid shutdown_timeout")
	}
	return nil
}

func validateTrade(t *TradeConfig) error {
	positive := map[string]float64{
		"trade.trade_amount":           t.TradeAmount,
		"trade.stop_loss":              t.StopLoss,
		"trade.risk_reward":            t.RiskReward,
		"trade.take_profit_multiplier": t.TakeProfitMultiplier,
		"trade.base_price":             t.BasePrice,
	}
	for key, value := range positive {
		if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
			return fmt.Errorf("invalid %s", key)
		}
	}
	if t.SlippageMin > t.SlippageMax {
		return errors.New("trade.slippage_min exceeds trade.slippage_max")
	}
	if t.SlippageMin <= -100 {
		return errors.New("trade.slippage_min must be above -100")
	}
	if t.MoonbagPercentage < 0 || t.MoonbagPercentage > 100 {
		return errors.New("trade.moonbag_percentage must be within [0,100]")
	}
	if t.PriceJitter < 0 || t.PriceJitter >= 100 {
		return errors.New("trade.price_jitter must be within [0,100)")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func normalizeList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if clean := strings.TrimSpace(part); clean != "" {
				out = append(out, clean)
			}
		}
	}
	return out
}

// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/moonbag/internal/logger"
)

type Config struct {
	RPCURL        string `mapstructure:"rpc_url" validate:"required"`
	PrivateKey    string `mapstructure:"private_key"`
	PositionsFile string `mapstructure:"positions_file"`
	JournalDir    string `mapstructure:"journal_dir"`
	MetricsAddr   string `mapstructure:"metrics_addr"`

	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Price     PriceConfig     `mapstructure:"price"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Log       logger.Config   `mapstructure:"log"`
}

type MonitorConfig struct {
	PollInterval        int     `mapstructure:"poll_interval" validate:"gt=0"`  // seconds
	CycleTimeout        int     `mapstructure:"cycle_timeout" validate:"gt=0"`  // seconds
	TakeProfitMultiple  float64 `mapstructure:"take_profit_multiple" validate:"gt=1"`
	PartialExitFraction float64 `mapstructure:"partial_exit_fraction" validate:"gt=0,lt=1"`
	TrailingStopRatio   float64 `mapstructure:"trailing_stop_ratio" validate:"gt=0,lt=1"`
}

type PriceConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required"`
	Timeout           int     `mapstructure:"timeout" validate:"gt=0"`   // milliseconds
	CacheTTL          int     `mapstructure:"cache_ttl" validate:"gte=0"` // milliseconds
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
}

type ExecutionConfig struct {
	Mode              string  `mapstructure:"mode" validate:"oneof=live paper"`
	JupiterURL        string  `mapstructure:"jupiter_url" validate:"required"`
	SlippageBps       int     `mapstructure:"slippage_bps" validate:"gt=0,lte=5000"`
	PriorityFee       uint64  `mapstructure:"priority_fee"` // lamports
	ConfirmTimeout    int     `mapstructure:"confirm_timeout" validate:"gt=0"` // seconds
	Retries           int     `mapstructure:"retries" validate:"gte=0"`
	SellsPerMinute    float64 `mapstructure:"sells_per_minute" validate:"gte=0"` // 0 disables the limit
	PaperPriceFromAPI bool    `mapstructure:"paper_price_from_api"`
}

type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`
	WebhookURL     string `mapstructure:"webhook_url"`
	AlertCooldown  int    `mapstructure:"alert_cooldown" validate:"gte=0"` // seconds
}

const (
	DefaultRPCURL       = "https://api.mainnet-beta.solana.com"
	DefaultPollInterval = 60
	DefaultCycleTimeout = 90
	DefaultSlippageBps  = 500
	DefaultRetries      = 3
)

// Environment variables read without the MOONBAG_ prefix, as wallets and .env files name them.
const (
	EnvRPCURL     = "SOLANA_RPC_URL"
	EnvPrivateKey = "SOLANA_PRIVATE_KEY"
)

var defaults = map[string]interface{}{
	"rpc_url":        DefaultRPCURL,
	"private_key":    "",
	"positions_file": "configs/positions.yaml",
	"journal_dir":    "logs",
	"metrics_addr":   ":9108",

	"monitor.poll_interval":         DefaultPollInterval,
	"monitor.cycle_timeout":         DefaultCycleTimeout,
	"monitor.take_profit_multiple":  2.0,
	"monitor.partial_exit_fraction": 0.5,
	"monitor.trailing_stop_ratio":   0.7,

	"price.base_url":            "https://api.dexscreener.com",
	"price.timeout":             5000,
	"price.cache_ttl":           2000,
	"price.requests_per_second": 4.0,

	"execution.mode":                 "live",
	"execution.jupiter_url":          "https://quote-api.jup.ag/v6",
	"execution.slippage_bps":         DefaultSlippageBps,
	"execution.priority_fee":         0,
	"execution.confirm_timeout":      45,
	"execution.retries":              DefaultRetries,
	"execution.sells_per_minute":     0.0,
	"execution.paper_price_from_api": true,

	"notify.telegram_token":   "",
	"notify.telegram_chat_id": 0,
	"notify.webhook_url":      "",
	"notify.alert_cooldown":   900,

	"log.level":        "info",
	"log.file":         "logs/moonbag.log",
	"log.max_size_mb":  100,
	"log.max_backups":  3,
	"log.max_age_days": 7,
	"log.compress":     true,
	"log.pretty":       true,
}

// LoadConfig reads path (yaml or json) on top of the defaults. An empty path uses defaults and
// environment only. A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("MOONBAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	loadEnvironmentVariables(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvironmentVariables(cfg *Config) {
	if rpc := strings.TrimSpace(os.Getenv(EnvRPCURL)); rpc != "" {
		cfg.RPCURL = rpc
	}
	if key := strings.TrimSpace(os.Getenv(EnvPrivateKey)); key != "" {
		cfg.PrivateKey = key
	}
}

var validate = validator.New()

func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if err := validateURLWithCache(cfg.Price.BaseURL, "http"); err != nil {
		return fmt.Errorf("invalid price.base_url: %w", err)
	}
	if err := validateURLWithCache(cfg.Execution.JupiterURL, "http"); err != nil {
		return fmt.Errorf("invalid execution.jupiter_url: %w", err)
	}
	if cfg.Notify.WebhookURL != "" {
		if err := validateURLWithCache(cfg.Notify.WebhookURL, "https"); err != nil {
			return errors.New("webhook URL must use HTTPS")
		}
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID == 0 {
		return errors.New("notify.telegram_chat_id is required when telegram_token is set")
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

func (c MonitorConfig) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c MonitorConfig) CycleTimeoutDuration() time.Duration {
	return time.Duration(c.CycleTimeout) * time.Second
}

func (c PriceConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c PriceConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Millisecond
}

func (c ExecutionConfig) ConfirmTimeoutDuration() time.Duration {
	return time.Duration(c.ConfirmTimeout) * time.Second
}

func (c ExecutionConfig) Paper() bool { return c.Mode == "paper" }

func (c NotifyConfig) AlertCooldownDuration() time.Duration {
	return time.Duration(c.AlertCooldown) * time.Second
}

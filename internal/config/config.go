package config

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rewired-gh/fxcorr/internal/instruments"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Quotes   QuotesConfig   `mapstructure:"quotes"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AnalysisConfig holds the default instrument selection
type AnalysisConfig struct {
	Currencies    []string `mapstructure:"currencies"`
	Tickers       []string `mapstructure:"tickers"`
	LookbackDays  int      `mapstructure:"lookback_days"`
	MaxRangeDays  int      `mapstructure:"max_range_days"`
	FocusCurrency string   `mapstructure:"focus_currency"`
}

// AlertConfig holds threshold alert configuration
type AlertConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Threshold float64 `mapstructure:"threshold"` // percent
	Recipient string  `mapstructure:"recipient"`
	Channel   string  `mapstructure:"channel"` // email or telegram
}

// QuotesConfig holds market data retrieval configuration
type QuotesConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	Fallback          bool          `mapstructure:"fallback"`
}

// StorageConfig holds the retrieval cache configuration
type StorageConfig struct {
	DBPath       string `mapstructure:"db_path"`
	CacheEnabled bool   `mapstructure:"cache_enabled"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A .env file
// in the working directory is loaded first when present. An empty path skips
// the config file and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	// FXCORR_ALERT_THRESHOLD overrides alert.threshold
	v.SetEnvPrefix("FXCORR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.Analysis.Currencies, err = instruments.Resolve(cfg.Analysis.Currencies); err != nil {
		return nil, fmt.Errorf("analysis.currencies: %w", err)
	}
	if cfg.Analysis.Tickers, err = instruments.Resolve(cfg.Analysis.Tickers); err != nil {
		return nil, fmt.Errorf("analysis.tickers: %w", err)
	}
	if cfg.Analysis.FocusCurrency != "" {
		focus, err := instruments.Resolve([]string{cfg.Analysis.FocusCurrency})
		if err != nil {
			return nil, fmt.Errorf("analysis.focus_currency: %w", err)
		}
		cfg.Analysis.FocusCurrency = focus[0]
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Analysis defaults
	v.SetDefault("analysis.currencies", instruments.DefaultCurrencies)
	v.SetDefault("analysis.tickers", instruments.DefaultEquities)
	v.SetDefault("analysis.lookback_days", 90)
	v.SetDefault("analysis.max_range_days", 3660)
	v.SetDefault("analysis.focus_currency", "")

	// Alert defaults
	v.SetDefault("alert.enabled", false)
	v.SetDefault("alert.threshold", 1.0)
	v.SetDefault("alert.recipient", "")
	v.SetDefault("alert.channel", "email")

	// Quotes defaults
	v.SetDefault("quotes.timeout", "30s")
	v.SetDefault("quotes.requests_per_second", 2.0)
	v.SetDefault("quotes.cache_ttl", "1h")
	v.SetDefault("quotes.fallback", true)

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/fxcorr.db")
	v.SetDefault("storage.cache_enabled", true)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Server defaults
	v.SetDefault("server.addr", ":8080")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Analysis config
	if len(c.Analysis.Currencies) == 0 && len(c.Analysis.Tickers) == 0 {
		return fmt.Errorf("analysis must select at least one currency or ticker")
	}
	if c.Analysis.LookbackDays < 1 {
		return fmt.Errorf("analysis.lookback_days must be at least 1")
	}
	if c.Analysis.MaxRangeDays < c.Analysis.LookbackDays {
		return fmt.Errorf("analysis.max_range_days must be at least analysis.lookback_days")
	}
	if c.Analysis.FocusCurrency != "" && !contains(c.Analysis.Currencies, c.Analysis.FocusCurrency) {
		return fmt.Errorf("analysis.focus_currency must be one of analysis.currencies")
	}

	// Validate Alert config
	if c.Alert.Enabled {
		if c.Alert.Threshold <= 0 {
			return fmt.Errorf("alert.threshold must be a positive percentage")
		}
		if c.Alert.Channel != "email" && c.Alert.Channel != "telegram" {
			return fmt.Errorf("alert.channel must be one of: email, telegram")
		}
		if c.Alert.Channel == "telegram" && !c.Telegram.Enabled {
			return fmt.Errorf("telegram must be enabled when alert.channel is telegram")
		}
		if c.Alert.Channel == "email" && c.Alert.Recipient != "" {
			if _, err := mail.ParseAddress(c.Alert.Recipient); err != nil {
				return fmt.Errorf("alert.recipient must be a valid email address")
			}
		}
	}

	// Validate Quotes config
	if c.Quotes.Timeout < time.Second {
		return fmt.Errorf("quotes.timeout must be at least 1 second")
	}
	if c.Quotes.RequestsPerSecond < 0 {
		return fmt.Errorf("quotes.requests_per_second must not be negative")
	}
	if c.Quotes.CacheTTL < 0 {
		return fmt.Errorf("quotes.cache_ttl must not be negative")
	}

	// Validate Storage config
	if c.Storage.CacheEnabled && c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required when the cache is enabled")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.MaxRetries < 1 {
			return fmt.Errorf("telegram.max_retries must be at least 1")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
analysis:
  currencies:
    - USD/INR
    - jpy-inr
  tickers:
    - Infosys
    - WIPRO.NS
  lookback_days: 30
  focus_currency: JPY/INR

alert:
  enabled: true
  threshold: 1.5
  recipient: "ops@example.com"
  channel: email

quotes:
  timeout: 10s
  cache_ttl: 30m

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  db_path: "./data/test.db"

logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := strings.Join(cfg.Analysis.Currencies, ","); got != "USD-INR,JPY-INR" {
		t.Errorf("Unexpected currencies: %s", got)
	}
	if got := strings.Join(cfg.Analysis.Tickers, ","); got != "INFY.NS,WIPRO.NS" {
		t.Errorf("Unexpected tickers: %s", got)
	}
	if cfg.Analysis.FocusCurrency != "JPY-INR" {
		t.Errorf("Unexpected focus currency: %s", cfg.Analysis.FocusCurrency)
	}
	if cfg.Alert.Threshold != 1.5 {
		t.Errorf("Unexpected threshold: %f", cfg.Alert.Threshold)
	}
	if cfg.Quotes.Timeout != 10*time.Second {
		t.Errorf("Unexpected timeout: %v", cfg.Quotes.Timeout)
	}
	if cfg.Quotes.CacheTTL != 30*time.Minute {
		t.Errorf("Unexpected cache ttl: %v", cfg.Quotes.CacheTTL)
	}
	if !cfg.Quotes.Fallback {
		t.Error("Expected fallback to default to true")
	}
	if cfg.Telegram.MaxRetries != 3 {
		t.Errorf("Unexpected max retries: %d", cfg.Telegram.MaxRetries)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := strings.Join(cfg.Analysis.Currencies, ","); got != "USD-INR,EUR-INR" {
		t.Errorf("Unexpected default currencies: %s", got)
	}
	if len(cfg.Analysis.Tickers) != 3 {
		t.Errorf("Expected 3 default tickers, got %d", len(cfg.Analysis.Tickers))
	}
	if cfg.Analysis.LookbackDays != 90 {
		t.Errorf("Unexpected lookback: %d", cfg.Analysis.LookbackDays)
	}
	if cfg.Quotes.CacheTTL != time.Hour {
		t.Errorf("Unexpected cache ttl: %v", cfg.Quotes.CacheTTL)
	}
	if cfg.Analysis.MaxRangeDays != 3660 {
		t.Errorf("Unexpected max range: %d", cfg.Analysis.MaxRangeDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FXCORR_ALERT_THRESHOLD", "2.5")
	t.Setenv("FXCORR_ANALYSIS_LOOKBACK_DAYS", "14")
	t.Setenv("FXCORR_SERVER_ADDR", ":9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Alert.Threshold != 2.5 {
		t.Errorf("Unexpected threshold: %f", cfg.Alert.Threshold)
	}
	if cfg.Analysis.LookbackDays != 14 {
		t.Errorf("Unexpected lookback: %d", cfg.Analysis.LookbackDays)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Unexpected addr: %s", cfg.Server.Addr)
	}
}

func TestLoadRejectsMalformedInstrument(t *testing.T) {
	path := writeConfig(t, `
analysis:
  currencies:
    - "USD INR"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "analysis.currencies") {
		t.Errorf("Load() = %v, want analysis.currencies error", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Analysis: AnalysisConfig{Currencies: []string{"USD-INR"}, Tickers: []string{"TCS.NS"}, LookbackDays: 90, MaxRangeDays: 3660},
			Alert:    AlertConfig{Enabled: true, Threshold: 1, Channel: "email", Recipient: "ops@example.com"},
			Quotes:   QuotesConfig{Timeout: 30 * time.Second, CacheTTL: time.Hour},
			Storage:  StorageConfig{DBPath: "./data/fxcorr.db", CacheEnabled: true},
			Logging:  LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no instruments", func(c *Config) { c.Analysis.Currencies = nil; c.Analysis.Tickers = nil }, "at least one currency"},
		{"zero lookback", func(c *Config) { c.Analysis.LookbackDays = 0 }, "lookback_days"},
		{"range cap below lookback", func(c *Config) { c.Analysis.MaxRangeDays = 30 }, "max_range_days"},
		{"unknown focus", func(c *Config) { c.Analysis.FocusCurrency = "EUR-INR" }, "focus_currency"},
		{"zero threshold", func(c *Config) { c.Alert.Threshold = 0 }, "alert.threshold"},
		{"disabled alert ignores threshold", func(c *Config) { c.Alert.Enabled = false; c.Alert.Threshold = 0 }, ""},
		{"bad channel", func(c *Config) { c.Alert.Channel = "sms" }, "alert.channel"},
		{"malformed email recipient", func(c *Config) { c.Alert.Recipient = "ops@example.com\r\nBcc: x@example.com" }, "alert.recipient"},
		{"telegram channel without telegram", func(c *Config) { c.Alert.Channel = "telegram" }, "telegram must be enabled"},
		{"short timeout", func(c *Config) { c.Quotes.Timeout = time.Millisecond }, "quotes.timeout"},
		{"negative rate", func(c *Config) { c.Quotes.RequestsPerSecond = -1 }, "requests_per_second"},
		{"cache without path", func(c *Config) { c.Storage.DBPath = "" }, "storage.db_path"},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "1"; c.Telegram.MaxRetries = 3 }, "bot_token"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading       TradingConfig      `mapstructure:"trading"`
	Bracket       BracketConfig      `mapstructure:"bracket"`
	Schedule      ScheduleConfig     `mapstructure:"schedule"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	DefaultProduct  string `mapstructure:"default_product"`  // MIS, CNC, NRML
	DefaultExchange string `mapstructure:"default_exchange"` // NSE, BSE
}

// BracketConfig parameterizes the scheduled bracket job. The same struct
// covers both the equity and the derivative variant: ContractType, StrikeStep
// and Expiry are set together for derivatives and left empty for equities.
type BracketConfig struct {
	Symbol        string        `mapstructure:"symbol"`
	Side          string        `mapstructure:"side"` // BUY, SELL
	Quantity      int           `mapstructure:"quantity"`
	ContractType  string        `mapstructure:"contract_type"` // CE, PE, FUT; empty for equity
	StrikeStep    int           `mapstructure:"strike_step"`
	Expiry        string        `mapstructure:"expiry"` // YYYY-MM-DD
	StopPercent   float64       `mapstructure:"stop_percent"`
	TargetPercent float64       `mapstructure:"target_percent"`
	FillTimeout   time.Duration `mapstructure:"fill_timeout"`
	FillInterval  time.Duration `mapstructure:"fill_interval"`
}

// ScheduleConfig holds the daily trigger times for the two jobs.
type ScheduleConfig struct {
	Timezone  string `mapstructure:"timezone"`   // IANA name, default Asia/Kolkata
	Days      string `mapstructure:"days"`       // "mon-sat" or "mon-fri"
	BracketAt string `mapstructure:"bracket_at"` // HH:MM, 24h
	FlattenAt string `mapstructure:"flatten_at"` // HH:MM, 24h
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Zerodha API credentials.
type ZerodhaCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	UserID     string `mapstructure:"user_id"`
	Password   string `mapstructure:"password"`    // For auto-login
	TOTPSecret string `mapstructure:"totp_secret"` // For auto-login with 2FA
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/simple-algo"
	}
	return filepath.Join(home, ".config", "simple-algo")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// Defaults mirror the original intraday setup
	v.SetDefault("trading.default_product", "MIS")
	v.SetDefault("trading.default_exchange", "NSE")
	v.SetDefault("bracket.stop_percent", 0.15)
	v.SetDefault("bracket.target_percent", 0.15)
	v.SetDefault("bracket.fill_timeout", "10s")
	v.SetDefault("bracket.fill_interval", "500ms")
	v.SetDefault("schedule.timezone", "Asia/Kolkata")
	v.SetDefault("schedule.days", "mon-sat")
	v.SetDefault("schedule.bracket_at", "16:02")
	v.SetDefault("schedule.flatten_at", "16:03")
	v.SetDefault("notifications.level", "errors_only")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		cfg.Credentials.Zerodha.APIKey = v
	}
	if v := os.Getenv("ZERODHA_API_SECRET"); v != "" {
		cfg.Credentials.Zerodha.APISecret = v
	}
	if v := os.Getenv("ZERODHA_USER_ID"); v != "" {
		cfg.Credentials.Zerodha.UserID = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Bracket.Side != "" && c.Bracket.Side != "BUY" && c.Bracket.Side != "SELL" {
		return fmt.Errorf("invalid bracket side: %s (must be BUY or SELL)", c.Bracket.Side)
	}
	if c.Bracket.Quantity < 0 {
		return fmt.Errorf("bracket quantity must be non-negative")
	}
	if c.Bracket.StopPercent < 0 || c.Bracket.StopPercent >= 1 {
		return fmt.Errorf("stop_percent must be in [0, 1)")
	}
	if c.Bracket.TargetPercent < 0 || c.Bracket.TargetPercent >= 1 {
		return fmt.Errorf("target_percent must be in [0, 1)")
	}

	// Derivative parameters come as a full set or not at all
	derivative := c.Bracket.ContractType != "" || c.Bracket.StrikeStep != 0 || c.Bracket.Expiry != ""
	if derivative {
		if c.Bracket.ContractType == "" || c.Bracket.StrikeStep <= 0 || c.Bracket.Expiry == "" {
			return fmt.Errorf("derivative bracket needs contract_type, strike_step and expiry together")
		}
		if _, err := time.Parse("2006-01-02", c.Bracket.Expiry); err != nil {
			return fmt.Errorf("invalid expiry %q: expected YYYY-MM-DD", c.Bracket.Expiry)
		}
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); c.Schedule.Timezone != "" && err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Schedule.Timezone, err)
	}
	for _, at := range []string{c.Schedule.BracketAt, c.Schedule.FlattenAt} {
		if at == "" {
			continue
		}
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("invalid schedule time %q: expected HH:MM", at)
		}
	}

	return nil
}

// IsDerivative reports whether the configured bracket job targets an F&O
// contract rather than a cash-market equity.
func (c *Config) IsDerivative() bool {
	return c.Bracket.ContractType != ""
}

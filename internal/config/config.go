package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	MLB      MLBConfig      `mapstructure:"mlb"`
	Hype     HypeConfig     `mapstructure:"hype"`
	Moments  MomentsConfig  `mapstructure:"moments"`
	OnePlay  OnePlayConfig  `mapstructure:"oneplay"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// MLBConfig holds Stats API access and polling cadence
type MLBConfig struct {
	APIBaseURL        string        `mapstructure:"api_base_url"`
	APIBaseURLV11     string        `mapstructure:"api_base_url_v11"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	LiveInterval      time.Duration `mapstructure:"live_interval"`
	IdleInterval      time.Duration `mapstructure:"idle_interval"`
	GameID            string        `mapstructure:"game_id"` // empty = first game on today's schedule
}

// HypeConfig holds drama meter and haptic settings
type HypeConfig struct {
	HapticCooldown time.Duration `mapstructure:"haptic_cooldown"`
	ReducedMotion  bool          `mapstructure:"reduced_motion"`
}

// MomentsConfig holds spike detection settings
type MomentsConfig struct {
	Cooldown          time.Duration `mapstructure:"cooldown"`
	MaxMoments        int           `mapstructure:"max_moments"`
	WPDeltaThreshold  float64       `mapstructure:"wp_delta_threshold"`
	DramaThreshold    float64       `mapstructure:"drama_threshold"`
	LeverageThreshold float64       `mapstructure:"leverage_threshold"`
}

// OnePlayConfig holds prediction mini-game settings
type OnePlayConfig struct {
	User     string `mapstructure:"user"`
	MaxDraws int    `mapstructure:"max_draws"`
	Debug    bool   `mapstructure:"debug"` // enables the forced-outcome override
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath     string `mapstructure:"db_path"`
	MaxRecords int    `mapstructure:"max_records"`
}

// ServerConfig holds the local REST/WebSocket listener configuration
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory, if present, is applied to the
// environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("MLB_HYPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("mlb.api_base_url", "https://statsapi.mlb.com/api/v1")
	v.SetDefault("mlb.api_base_url_v11", "https://statsapi.mlb.com/api/v1.1")
	v.SetDefault("mlb.timeout", "15s")
	v.SetDefault("mlb.max_retries", 3)
	v.SetDefault("mlb.retry_delay_base", "1s")
	v.SetDefault("mlb.requests_per_second", 2.0)
	v.SetDefault("mlb.live_interval", "30s")
	v.SetDefault("mlb.idle_interval", "2m")
	v.SetDefault("mlb.game_id", "")

	v.SetDefault("hype.haptic_cooldown", "25s")
	v.SetDefault("hype.reduced_motion", false)

	v.SetDefault("moments.cooldown", "20s")
	v.SetDefault("moments.max_moments", 25)
	v.SetDefault("moments.wp_delta_threshold", 6.0)
	v.SetDefault("moments.drama_threshold", 120.0)
	v.SetDefault("moments.leverage_threshold", 2.8)

	v.SetDefault("oneplay.user", "local")
	v.SetDefault("oneplay.max_draws", 60)
	v.SetDefault("oneplay.debug", false)

	v.SetDefault("storage.db_path", "./data/mlb-hype.db")
	v.SetDefault("storage.max_records", 500)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8787")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.MLB.APIBaseURL == "" {
		return fmt.Errorf("mlb.api_base_url is required")
	}
	if c.MLB.APIBaseURLV11 == "" {
		return fmt.Errorf("mlb.api_base_url_v11 is required")
	}
	if c.MLB.Timeout <= 0 {
		return fmt.Errorf("mlb.timeout must be positive")
	}
	if c.MLB.MaxRetries < 1 {
		return fmt.Errorf("mlb.max_retries must be at least 1")
	}
	if c.MLB.RequestsPerSecond <= 0 {
		return fmt.Errorf("mlb.requests_per_second must be positive")
	}
	if c.MLB.LiveInterval < 5*time.Second {
		return fmt.Errorf("mlb.live_interval must be at least 5 seconds")
	}
	if c.MLB.IdleInterval < c.MLB.LiveInterval {
		return fmt.Errorf("mlb.idle_interval must not be shorter than mlb.live_interval")
	}

	if c.Hype.HapticCooldown < 0 {
		return fmt.Errorf("hype.haptic_cooldown must not be negative")
	}

	if c.Moments.Cooldown < 0 {
		return fmt.Errorf("moments.cooldown must not be negative")
	}
	if c.Moments.MaxMoments < 1 {
		return fmt.Errorf("moments.max_moments must be at least 1")
	}
	if c.Moments.WPDeltaThreshold <= 0 || c.Moments.WPDeltaThreshold > 100 {
		return fmt.Errorf("moments.wp_delta_threshold must be between 0 and 100")
	}
	if c.Moments.DramaThreshold <= 0 {
		return fmt.Errorf("moments.drama_threshold must be positive")
	}
	if c.Moments.LeverageThreshold <= 0 {
		return fmt.Errorf("moments.leverage_threshold must be positive")
	}

	if strings.TrimSpace(c.OnePlay.User) == "" {
		return fmt.Errorf("oneplay.user is required")
	}
	if c.OnePlay.MaxDraws < 4 {
		return fmt.Errorf("oneplay.max_draws must be at least 4")
	}

	if c.Storage.MaxRecords < 1 {
		return fmt.Errorf("storage.max_records must be at least 1")
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required when server is enabled")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

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

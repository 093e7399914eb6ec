package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Trading  Trading  `mapstructure:"trading"`
	Market   Market   `mapstructure:"market"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Storage  Storage  `mapstructure:"storage"`
	Session  Session  `mapstructure:"session"`
	Learning Learning `mapstructure:"learning"`
}

// Market holds the configuration for the market-data provider.
type Market struct {
	BaseURL        string  `mapstructure:"base_url"`
	QuoteAsset     string  `mapstructure:"quote_asset"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	Seed           int64   `mapstructure:"seed"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Storage selects and configures the key-value backend used for snapshots.
type Storage struct {
	Driver        string `mapstructure:"driver"` // sqlite, redis or memory
	DSN           string `mapstructure:"dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// Trading holds the configuration for the simulated account and the ticker.
type Trading struct {
	UserID         string  `mapstructure:"user_id"`
	InitialBalance float64 `mapstructure:"initial_balance"`
	TickInterval   int     `mapstructure:"tick_interval"`
	PriceSource    string  `mapstructure:"price_source"` // random or provider
	Strategy       string  `mapstructure:"strategy"`
}

// Session holds the configuration for the local session stub.
type Session struct {
	MaxAgeHours int `mapstructure:"max_age_hours"`
}

// Learning points at an optional catalog file replacing the built-in modules.
type Learning struct {
	ModulesFile string `mapstructure:"modules_file"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	PriceSourceRandom   = "random"
	PriceSourceProvider = "provider"
)

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.SetEnvPrefix("flashtrade")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config: %w", err)
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}
	err = config.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.user_id", "demo-user")
	v.SetDefault("trading.initial_balance", 10000)
	v.SetDefault("trading.tick_interval", 3) // seconds
	v.SetDefault("trading.price_source", PriceSourceRandom)
	v.SetDefault("trading.strategy", "Manual")

	v.SetDefault("market.base_url", "https://api.binance.com/api/v3")
	v.SetDefault("market.quote_asset", "USDT")
	v.SetDefault("market.rate_limit", 10) // requests per second
	v.SetDefault("market.rate_limit_burst", 5)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("server.port", 8080)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "flashtrade.db")
	v.SetDefault("storage.redis_addr", "localhost:6379")

	v.SetDefault("session.max_age_hours", 24)
}

// Validate checks values viper cannot check for us.
func (c *Config) Validate() error {
	if c.Trading.InitialBalance < 0 {
		return fmt.Errorf("trading.initial_balance must not be negative, got %v", c.Trading.InitialBalance)
	}
	if c.Trading.TickInterval <= 0 {
		return fmt.Errorf("trading.tick_interval must be positive, got %d", c.Trading.TickInterval)
	}
	switch c.Trading.PriceSource {
	case PriceSourceRandom, PriceSourceProvider:
	default:
		return fmt.Errorf("unknown trading.price_source %q", c.Trading.PriceSource)
	}
	switch c.Storage.Driver {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

// TickDuration is the ticker period of the market engine.
func (c *Config) TickDuration() time.Duration {
	return time.Duration(c.Trading.TickInterval) * time.Second
}

// SessionMaxAge is how long a stored session stays valid.
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Session.MaxAgeHours) * time.Hour
}

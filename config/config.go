package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage backend: "mongo", "redis" or "memory".
	StoreBackend           string `mapstructure:"STORE_BACKEND"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	DatabaseName           string `mapstructure:"DATABASE_NAME"`
	AvailabilityCollection string `mapstructure:"AVAILABILITY_COLLECTION"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisStoreDB  int    `mapstructure:"REDIS_STORE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Auth.
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	AdminKeyHash string `mapstructure:"ADMIN_KEY_HASH"`

	// Hold lifetimes, in seconds.
	HoldTTLDefault int `mapstructure:"HOLD_TTL_DEFAULT"`
	HoldTTLMin     int `mapstructure:"HOLD_TTL_MIN"`
	HoldTTLMax     int `mapstructure:"HOLD_TTL_MAX"`
	MaxRangeDays   int `mapstructure:"MAX_RANGE_DAYS"`

	// Expiry reaping.
	ReaperEnabled      bool   `mapstructure:"REAPER_ENABLED"`
	ReaperSchedule     string `mapstructure:"REAPER_SCHEDULE"`
	ExpiryQueueEnabled bool   `mapstructure:"EXPIRY_QUEUE_ENABLED"`

	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	// Display name of the published iCalendar feed.
	CalendarName string `mapstructure:"CALENDAR_NAME"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("STORE_BACKEND", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "gigcal")
	v.SetDefault("AVAILABILITY_COLLECTION", "availability")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_STORE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_KEY_HASH", "")
	v.SetDefault("HOLD_TTL_DEFAULT", 900)
	v.SetDefault("HOLD_TTL_MIN", 1)
	v.SetDefault("HOLD_TTL_MAX", 3600)
	v.SetDefault("MAX_RANGE_DAYS", 366)
	v.SetDefault("REAPER_ENABLED", true)
	v.SetDefault("REAPER_SCHEDULE", "@every 1m")
	v.SetDefault("EXPIRY_QUEUE_ENABLED", false)
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("CALENDAR_NAME", "Availability")
}

// LoadConfig reads config.yaml from the working directory or ./config and
// overlays environment variables on top of it. A .env file in the working
// directory is loaded first; variables already set in the environment win.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// Automatically use environment variables where available.
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the availability engine cannot run with.
func (c Config) Validate() error {
	if c.HoldTTLMin < 1 {
		return fmt.Errorf("HOLD_TTL_MIN must be at least 1, got %d", c.HoldTTLMin)
	}
	if c.HoldTTLMax < c.HoldTTLMin {
		return fmt.Errorf("HOLD_TTL_MAX (%d) is below HOLD_TTL_MIN (%d)", c.HoldTTLMax, c.HoldTTLMin)
	}
	if c.HoldTTLDefault < c.HoldTTLMin || c.HoldTTLDefault > c.HoldTTLMax {
		return fmt.Errorf("HOLD_TTL_DEFAULT (%d) must lie within [%d, %d]", c.HoldTTLDefault, c.HoldTTLMin, c.HoldTTLMax)
	}
	if c.MaxRangeDays < 1 {
		return fmt.Errorf("MAX_RANGE_DAYS must be positive, got %d", c.MaxRangeDays)
	}
	switch c.StoreBackend {
	case "mongo", "redis", "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Loyalty  LoyaltyConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// StorageConfig selects the ledger store: "mongodb" or "memory".
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// DevJWTSecret is the fallback signing secret for local runs.
const DevJWTSecret = "dev-only-secret"

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret string
}

// LoyaltyConfig holds the commission split and engine tuning.
// Rates are decimal strings so that "0.05" is exact.
type LoyaltyConfig struct {
	Level1Rate  string
	Level2Rate  string
	LockStripes int
	// ExpiryCheckInterval schedules the background expiry run; zero disables it.
	ExpiryCheckInterval time.Duration
	// RuleRefreshInterval bounds how stale the cached loyalty rule may get
	// before a read reloads it from the store; zero disables refreshing.
	RuleRefreshInterval time.Duration
	DefaultRules        models.LoyaltyRule
}

// CommissionRates parses the per-level rates, level 1 first.
func (c LoyaltyConfig) CommissionRates() ([]decimal.Decimal, error) {
	raw := []string{c.Level1Rate, c.Level2Rate}
	rates := make([]decimal.Decimal, 0, len(raw))
	for i, s := range raw {
		rate, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("loyalty level %d rate %q: %w", i+1, s, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("loyalty level %d rate %s must be within [0, 1]", i+1, rate)
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read configuration
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "mongodb", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.Loyalty.CommissionRates(); err != nil {
		return err
	}
	if c.Loyalty.LockStripes < 1 {
		return fmt.Errorf("loyalty lock stripes must be positive, got %d", c.Loyalty.LockStripes)
	}
	if c.Loyalty.ExpiryCheckInterval < 0 {
		return fmt.Errorf("loyalty expiry check interval must not be negative, got %s", c.Loyalty.ExpiryCheckInterval)
	}
	if c.Loyalty.RuleRefreshInterval < 0 {
		return fmt.Errorf("loyalty rule refresh interval must not be negative, got %s", c.Loyalty.RuleRefreshInterval)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("Storage.Driver", "mongodb")
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MongoDB.Database", "loyalty-ledger")
	v.SetDefault("MongoDB.Timeout", 10*time.Second)
	v.SetDefault("JWT.Secret", DevJWTSecret)
	v.SetDefault("LogLevel", "info")

	v.SetDefault("Loyalty.Level1Rate", "0.05")
	v.SetDefault("Loyalty.Level2Rate", "0.02")
	v.SetDefault("Loyalty.LockStripes", 256)
	v.SetDefault("Loyalty.ExpiryCheckInterval", time.Hour)
	v.SetDefault("Loyalty.RuleRefreshInterval", 30*time.Second)
	v.SetDefault("Loyalty.DefaultRules.earnRatePer100k", 100)
	v.SetDefault("Loyalty.DefaultRules.registrationBonus", 1000)
	v.SetDefault("Loyalty.DefaultRules.reviewBonus", 200)
	v.SetDefault("Loyalty.DefaultRules.referralBonus", 2500)
	v.SetDefault("Loyalty.DefaultRules.birthdayBonus", 5000)
	v.SetDefault("Loyalty.DefaultRules.pointExpiryMonths", 12)
	v.SetDefault("Loyalty.DefaultRules.doublePointsActive", false)
}

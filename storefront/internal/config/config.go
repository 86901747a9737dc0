package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	SiteURL         string        `mapstructure:"SITE_URL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	PaymentServiceURL     string        `mapstructure:"PAYMENT_SERVICE_URL"`
	PaymentServiceTimeout time.Duration `mapstructure:"PAYMENT_SERVICE_TIMEOUT"`
	BreakerFailures       uint32        `mapstructure:"BREAKER_CONSECUTIVE_FAILURES"`
	BreakerTimeout        time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`

	StripeSecretKey string `mapstructure:"STRIPE_SECRET_KEY"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	CartTTL       time.Duration `mapstructure:"CART_TTL"`

	SessionIdleTTL       time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`

	// CatalogServiceURL is where cart prices come from; empty trusts the
	// price sent with the item.
	CatalogServiceURL     string        `mapstructure:"CATALOG_SERVICE_URL"`
	CatalogServiceTimeout time.Duration `mapstructure:"CATALOG_SERVICE_TIMEOUT"`

	// KafkaBrokers is a comma separated list; empty disables the
	// checkout-completed consumer.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SITE_URL", "http://localhost:5173")
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("PAYMENT_SERVICE_URL", "http://localhost:8082")
	v.SetDefault("PAYMENT_SERVICE_TIMEOUT", 15*time.Second)
	v.SetDefault("BREAKER_CONSECUTIVE_FAILURES", 5)
	v.SetDefault("BREAKER_OPEN_TIMEOUT", 30*time.Second)
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("CART_TTL", 7*24*time.Hour)
	v.SetDefault("SESSION_IDLE_TTL", 2*time.Hour)
	v.SetDefault("SESSION_SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("CATALOG_SERVICE_URL", "http://localhost:8081")
	v.SetDefault("CATALOG_SERVICE_TIMEOUT", 5*time.Second)
	v.SetDefault("KAFKA_BROKERS", "")
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	return &cfg, nil
}

func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

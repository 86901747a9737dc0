package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/fitcoach/payment-service/internal/repository"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	// SiteURL is used for redirect URLs when a request has no Origin.
	SiteURL           string `mapstructure:"SITE_URL"`
	ShippingCountries string `mapstructure:"SHIPPING_COUNTRIES"`

	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         int    `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8082")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("SITE_URL", "http://localhost:5173")
	v.SetDefault("SHIPPING_COUNTRIES", "US")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "payments")
	v.SetDefault("MIGRATIONS_PATH", "./internal/repository/migrations")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
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

func (c *Config) Credentials() *repository.Credentials {
	return &repository.Credentials{
		Host:              c.DBHost,
		Port:              c.DBPort,
		User:              c.DBUser,
		Password:          c.DBPassword,
		DBName:            c.DBName,
		MigrationsDirPath: c.MigrationsPath,
	}
}

func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers, false)
}

// Countries returns the shipping allow-list, upper-cased.
func (c *Config) Countries() []string {
	return splitList(c.ShippingCountries, true)
}

func splitList(s string, upper bool) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if upper {
			part = strings.ToUpper(part)
		}
		out = append(out, part)
	}
	return out
}

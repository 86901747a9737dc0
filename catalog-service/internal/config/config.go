package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendSQL   = "sqlite"
	BackendMongo = "mongo"
)

type Config struct {
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Backend picks the catalog store: sqlite or mongo.
	Backend        string `mapstructure:"CATALOG_BACKEND"`
	DBPath         string `mapstructure:"DB_PATH"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	MongoURI       string `mapstructure:"MONGO_URI"`
	MongoDatabase  string `mapstructure:"MONGO_DATABASE"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8081")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("CATALOG_BACKEND", BackendSQL)
	v.SetDefault("DB_PATH", "./internal/repository/catalog.db")
	v.SetDefault("MIGRATIONS_PATH", "./internal/repository/migrations")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "catalog")
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
	if cfg.Backend != BackendSQL && cfg.Backend != BackendMongo {
		return nil, fmt.Errorf("CATALOG_BACKEND must be %q or %q, got %q", BackendSQL, BackendMongo, cfg.Backend)
	}
	return &cfg, nil
}

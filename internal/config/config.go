// Package config содержит логику чтения конфигурации витрины магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress       = "localhost:8080"
	defaultAppEnv           = "production"
	defaultTokenTTL         = 24 * time.Hour
	defaultCategoryCacheTTL = 5 * time.Minute
)

// Config содержит параметры конфигурации витрины магазина.
type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	DatabaseURI      string        `env:"DATABASE_URI"`
	JWTSecret        string        `env:"JWT_SECRET"`
	TokenTTL         time.Duration `env:"TOKEN_TTL"`
	AppEnv           string        `env:"APP_ENV"`
	RedisAddr        string        `env:"REDIS_ADDR"`
	CategoryCacheTTL time.Duration `env:"CATEGORY_CACHE_TTL"`
	SeedDemo         bool          `env:"SEED_DEMO"`
}

// IsDevelopment сообщает, запущен ли сервис в режиме разработки.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory store when empty")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing session tokens")
	flag.DurationVar(&cfg.TokenTTL, "t", defaultTokenTTL, "session token lifetime")
	flag.StringVar(&cfg.AppEnv, "e", defaultAppEnv, "application environment (development, production)")
	flag.StringVar(&cfg.RedisAddr, "c", "", "redis address for category cache")
	flag.BoolVar(&cfg.SeedDemo, "seed", false, "seed demo catalog into an empty store on start")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.JWTSecret != "" {
		cfg.JWTSecret = envCfg.JWTSecret
	}
	if envCfg.TokenTTL != 0 {
		cfg.TokenTTL = envCfg.TokenTTL
	}
	if envCfg.AppEnv != "" {
		cfg.AppEnv = envCfg.AppEnv
	}
	if envCfg.RedisAddr != "" {
		cfg.RedisAddr = envCfg.RedisAddr
	}
	if envCfg.SeedDemo {
		cfg.SeedDemo = true
	}
	cfg.CategoryCacheTTL = envCfg.CategoryCacheTTL

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = defaultAppEnv
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.CategoryCacheTTL <= 0 {
		cfg.CategoryCacheTTL = defaultCategoryCacheTTL
	}

	return cfg, nil
}

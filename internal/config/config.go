// Package config содержит логику чтения конфигурации сервиса Support Me.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса Support Me.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	JWTSecret string `env:"JWT_SECRET"`
	// Срок жизни токена и cookie в днях.
	JWTLifetimeDays int    `env:"JWT_LIFETIME" envDefault:"30"`
	Env             string `env:"ENV" envDefault:"production"`
	BaseURL         string `env:"BASE_URL" envDefault:"http://localhost:5173"`
	StaticDir       string `env:"STATIC_DIR" envDefault:"static"`

	StripeSecretKey  string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookKey string `env:"STRIPE_WEBHOOK_KEY"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	AMQPURL      string `env:"AMQP_URL"`
	MailExchange string `env:"MAIL_EXCHANGE" envDefault:"support-me.mail"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"Support Me <no-reply@support-me.local>"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	// Запросов в минуту с одного адреса к /api/v1/auth.
	AuthRateLimit int `env:"AUTH_RATE_LIMIT" envDefault:"20"`
}

// Development сообщает, запущен ли сервис в режиме разработки.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// Production сообщает, запущен ли сервис в боевом окружении. Только в нём cookie помечается Secure.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// JWTLifetime возвращает срок жизни токена.
func (c *Config) JWTLifetime() time.Duration {
	return time.Duration(c.JWTLifetimeDays) * 24 * time.Hour
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.JWTLifetimeDays <= 0 {
		return nil, fmt.Errorf("JWT_LIFETIME must be positive, got %d", cfg.JWTLifetimeDays)
	}

	return cfg, nil
}

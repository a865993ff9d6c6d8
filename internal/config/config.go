// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	Language   string `env:"DEFAULT_LANGUAGE" envDefault:"en"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"chatlounge:"`

	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"chatlounge"`

	IdleTimeout    time.Duration `env:"RANDOM_CHAT_IDLE_TIMEOUT" envDefault:"10m"`
	SweepSchedule  string        `env:"RANDOM_CHAT_SWEEP_SCHEDULE" envDefault:"@every 1m"`
	ThrottleLimit  int           `env:"RANDOM_CHAT_THROTTLE_LIMIT" envDefault:"5"`
	ThrottleWindow time.Duration `env:"RANDOM_CHAT_THROTTLE_WINDOW" envDefault:"1s"`
	AnonBlock      time.Duration `env:"ANON_BLOCK_DURATION" envDefault:"5m"`

	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.ThrottleLimit <= 0 {
		errs = append(errs, fmt.Errorf("RANDOM_CHAT_THROTTLE_LIMIT must be positive, got %d", c.ThrottleLimit))
	}
	if c.ThrottleWindow <= 0 {
		errs = append(errs, fmt.Errorf("RANDOM_CHAT_THROTTLE_WINDOW must be positive, got %s", c.ThrottleWindow))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// ConfigureLogger налаштовує logrus: JSON у продакшені, текст локально.
func (c *Config) ConfigureLogger(log *logrus.Logger) {
	if c.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=localhost dbname=chat")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RANDOM_CHAT_IDLE_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 5, cfg.ThrottleLimit)
	assert.Equal(t, time.Second, cfg.ThrottleWindow)
	assert.Equal(t, 5*time.Minute, cfg.AnonBlock)
	assert.Equal(t, "@every 1m", cfg.SweepSchedule)
	assert.False(t, cfg.IsProduction())
}

func TestValidate_ReportsAllMissingFields(t *testing.T) {
	cfg := &Config{ThrottleLimit: 0, ThrottleWindow: time.Second}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DSN")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "RANDOM_CHAT_THROTTLE_LIMIT")
}

func TestPhoneNumberPattern(t *testing.T) {
	assert.True(t, PhoneNumberPattern.MatchString("call me 010-1234-5678 later"))
	assert.False(t, PhoneNumberPattern.MatchString("010-123-5678"))
}

func TestConfigureLogger(t *testing.T) {
	log := logrus.New()
	(&Config{AppEnv: "production", LogLevel: "debug"}).ConfigureLogger(log)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	(&Config{LogLevel: "nonsense"}).ConfigureLogger(log)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestRedisOptions(t *testing.T) {
	cfg := &Config{RedisAddr: "redis:6379", RedisDB: 2}
	opts := cfg.RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string `env:"BOT_TOKEN"`
	AdminID  int64  `env:"ADMIN_ID"`

	DNS1       string `env:"IPDNS1"`
	DNS2       string `env:"IPDNS2"`
	CardNumber string `env:"CARD_NUMBER" envDefault:"1234-5678-9012-3456"`
	ServerHost string `env:"SERVER_HOST" envDefault:"localhost:5000"`

	DBDsn string `env:"DB_DSN" envDefault:"dnsbot.db"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	IPGeoAPIKey  string        `env:"IPGEO_API_KEY"`
	IPGeoURL     string        `env:"IPGEO_URL" envDefault:"https://api.ipgeolocation.io/ipgeo"`
	IPGeoTimeout time.Duration `env:"IPGEO_TIMEOUT" envDefault:"5s"`
	IPGeoCountry string        `env:"IPGEO_COUNTRY" envDefault:"IR"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30m"`

	HealthAddr string `env:"HEALTH_ADDR" envDefault:"0.0.0.0:8080"`
	WebAddr    string `env:"WEB_ADDR" envDefault:"0.0.0.0:5000"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env not loaded", "error", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the bot process cannot run without.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if c.AdminID == 0 {
		return errors.New("ADMIN_ID is required")
	}
	return nil
}

func (c *Config) IsAdmin(userID int64) bool {
	return c.AdminID != 0 && c.AdminID == userID
}

// RegisterURL is the browser link for IP self-registration.
func (c *Config) RegisterURL(serviceID string, owner int64) string {
	host := strings.TrimSuffix(c.ServerHost, "/")
	return fmt.Sprintf("https://%s/register/%s/%d", host, serviceID, owner)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the server, bot and CLI.
type Config struct {
	HTTPAddr      string        `yaml:"http_addr"`
	DatabaseURL   string        `yaml:"database_url"`
	JWTSecret     string        `yaml:"jwt_secret"`
	SessionTTL    time.Duration `yaml:"-"`
	SessionHours  int           `yaml:"session_ttl_hours"`
	Timezone      string        `yaml:"timezone"`
	TelegramToken string        `yaml:"telegram_token"`
	ReportTime    string        `yaml:"report_time"`
	CookieSecure  bool          `yaml:"cookie_secure"`

	Location *time.Location `yaml:"-"`
}

// Load reads settings from an optional YAML file (CONFIG_FILE), then from the
// environment (with .env support), and fills defaults.
func Load() (Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	var cfg Config
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	overrideString(&cfg.HTTPAddr, "HTTP_ADDR")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.Timezone, "TIMEZONE")
	overrideString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	overrideString(&cfg.ReportTime, "REPORT_TIME")
	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL_HOURS")); raw != "" {
		cfg.SessionHours = parseHours(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("COOKIE_SECURE")); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		cfg.CookieSecure = secure
	}

	if err := cfg.applyDefaults(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RequireSecret reports an error when no JWT secret is configured.
func (c Config) RequireSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "time_tracker.db"
	}
	if c.SessionHours <= 0 {
		c.SessionHours = 24
	}
	c.SessionTTL = time.Duration(c.SessionHours) * time.Hour
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.ReportTime == "" {
		c.ReportTime = "20:00"
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseHours(raw string) int {
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

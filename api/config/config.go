package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env       string          `yaml:"env"`
	Port      string          `yaml:"port"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Organizer OrganizerConfig `yaml:"organizer"`
	CORS      CORSConfig      `yaml:"cors"`
	Sentry    SentryConfig    `yaml:"sentry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Audit     AuditConfig     `yaml:"audit"`
}

// DatabaseConfig holds Postgres settings. URL wins over the individual parts.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type RedisConfig struct {
	URL  string `yaml:"url"`
	Addr string `yaml:"addr"`
}

// OrganizerConfig guards write endpoints. An empty token disables the check.
type OrganizerConfig struct {
	Token string `yaml:"token"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SentryConfig struct {
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type AuditConfig struct {
	// Schedule is a cron spec; "off" disables the audit job.
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
}

func defaults() Config {
	return Config{
		Env:     "development",
		Port:    "8888",
		CORS:    CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Logging: LoggingConfig{Level: "info"},
		Audit:   AuditConfig{Schedule: "@every 15m", Timeout: time.Minute},
	}
}

// Load reads .env (outside production), then the YAML file named by
// CONFIG_FILE if it exists, then environment overrides.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&cfg.Env, "APP_ENV")
	set(&cfg.Port, "PORT", "API_PORT")
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Database.Host, "DB_HOST")
	set(&cfg.Database.Port, "DB_PORT")
	set(&cfg.Database.User, "DB_USER")
	set(&cfg.Database.Password, "DB_PASSWORD")
	set(&cfg.Database.Name, "DB_NAME")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Redis.Addr, "REDIS_ADDR")
	set(&cfg.Organizer.Token, "ORGANIZER_TOKEN")
	set(&cfg.Sentry.DSN, "SENTRY_DSN")
	set(&cfg.Logging.Level, "LOG_LEVEL")
	set(&cfg.Audit.Schedule, "AUDIT_SCHEDULE")

	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		cfg.CORS.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("AUDIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Audit.Timeout = d
		}
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DSN builds the Postgres connection string. In production DATABASE_URL is
// used and TLS is required.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		dsn := c.Database.URL
		if c.IsProduction() && !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=require"
			} else {
				dsn += "?sslmode=require"
			}
		}
		return dsn
	}

	port := c.Database.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Database.Host, c.Database.User, c.Database.Password, c.Database.Name, port,
	)
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

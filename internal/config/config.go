// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string

	FetchInterval  time.Duration
	AlertInterval  time.Duration
	RequestTimeout time.Duration

	FreeTierQuota    int
	JobRetentionDays int

	RemoteOKLimit   int
	HackerNewsLimit int
	GitHubLimit     int
	WWRLimit        int

	// EnableSkillFiltering is accepted for forward compatibility.
	// Skill filters are stored but matching does not apply them yet.
	EnableSkillFiltering bool
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	cfg := &Config{
		TelegramBotToken:     token,
		DatabasePath:         dbPath,
		LogLevel:             logLevel,
		EnableSkillFiltering: os.Getenv("ENABLE_SKILL_FILTERING") == "true",
	}

	var err error
	if cfg.FetchInterval, err = envSeconds("FETCH_INTERVAL", 3600); err != nil {
		return nil, err
	}
	if cfg.AlertInterval, err = envSeconds("ALERT_INTERVAL", 3600); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envSeconds("REQUEST_TIMEOUT", 10); err != nil {
		return nil, err
	}
	if cfg.FreeTierQuota, err = envInt("FREE_TIER_QUOTA", 5); err != nil {
		return nil, err
	}
	if cfg.JobRetentionDays, err = envInt("JOB_RETENTION_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.RemoteOKLimit, err = envInt("REMOTEOK_FETCH_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.HackerNewsLimit, err = envInt("HACKERNEWS_FETCH_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.GitHubLimit, err = envInt("GITHUB_FETCH_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.WWRLimit, err = envInt("WWR_FETCH_LIMIT", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RetentionAge returns the maximum age of stored jobs.
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.JobRetentionDays) * 24 * time.Hour
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, raw)
	}
	return v, nil
}

func envSeconds(key string, defSeconds int) (time.Duration, error) {
	v, err := envInt(key, defSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL        string
	Port               string
	RecordIDPrefix     string
	DefaultPhoneRegion string
	RateLimitUpload    RateLimitConfig
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Port:               getEnv("PORT", "8080"),
		RecordIDPrefix:     getEnv("RECORD_ID_PREFIX", "CORP"),
		DefaultPhoneRegion: getEnv("DEFAULT_PHONE_REGION", "US"),
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_UPLOAD", "5/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_UPLOAD value: %w", err)
	}
	cfg.RateLimitUpload = rl

	return cfg, nil
}

// fileConfig mirrors Config for the optional YAML overlay used by the CLI.
type fileConfig struct {
	DatabaseURL        string `yaml:"database_url"`
	Port               string `yaml:"port"`
	RecordIDPrefix     string `yaml:"record_id_prefix"`
	DefaultPhoneRegion string `yaml:"default_phone_region"`
	RateLimitUpload    string `yaml:"rate_limit_upload"`
}

// ApplyFile overlays values from a YAML file on top of the current config.
// Keys absent from the file keep their existing values.
func (c *Config) ApplyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.RecordIDPrefix != "" {
		c.RecordIDPrefix = fc.RecordIDPrefix
	}
	if fc.DefaultPhoneRegion != "" {
		c.DefaultPhoneRegion = fc.DefaultPhoneRegion
	}
	if fc.RateLimitUpload != "" {
		rl, err := parseRateLimit(fc.RateLimitUpload)
		if err != nil {
			return fmt.Errorf("invalid rate_limit_upload value: %w", err)
		}
		c.RateLimitUpload = rl
	}

	return nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

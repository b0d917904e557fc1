// Package config loads server settings from built-in defaults, an optional
// YAML file and ALLOWANCE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Port the HTTP server listens on. Ignored when Addr is set.
	Port string `yaml:"port"`
	// Addr is a full listen address such as 127.0.0.1:8080.
	Addr string `yaml:"addr"`

	DBPath string `yaml:"db_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFile, if set, receives a rotated copy of the log.
	LogFile string `yaml:"log_file"`

	// RateLimit is the sustained number of mutating requests per second
	// allowed from one client IP. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

func Default() *Config {
	return &Config{
		Port:      "8080",
		DBPath:    "allowance.db",
		LogLevel:  "info",
		RateLimit: 5,
		RateBurst: 20,
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ALLOWANCE_PORT"); ok && v != "" {
		c.Port = v
	}
	if v, ok := lookup("ALLOWANCE_DB_PATH"); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup("ALLOWANCE_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("ALLOWANCE_LOG_FILE"); ok {
		c.LogFile = v
	}
	if v, ok := lookup("ALLOWANCE_RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ALLOWANCE_RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}
	if v, ok := lookup("ALLOWANCE_RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ALLOWANCE_RATE_BURST: %w", err)
		}
		c.RateBurst = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.Addr == "" && c.Port == "" {
		return errors.New("port or addr is required")
	}
	if c.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return errors.New("rate_burst must be at least 1 when rate limiting is on")
	}
	return nil
}

// ListenAddr is the address to pass to http.Server.
func (c *Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return ":" + c.Port
}

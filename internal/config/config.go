// Package config resolves daemon settings from the environment, with an
// optional YAML file layered underneath. Environment wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Bind     string
	Port     int
	LogLevel zerolog.Level

	DeviceURL   string // router REST base, e.g. https://192.168.88.1/rest
	InsecureTLS bool
	DevMode     bool // plain-http cookies for local frontend development

	SessionTTL   time.Duration // idle time before the janitor sweeps a session
	PollBaseline time.Duration // interval the polling multiplier is relative to
	WindowSize   int           // live traffic chart points

	HistoryPath string // directory for the sqlite traffic history; empty disables persistence

	CORSOrigins []string

	SessionHashKey  []byte
	SessionBlockKey []byte
}

// fileConfig is the YAML shape; durations are Go duration strings.
type fileConfig struct {
	Bind         string   `yaml:"bind"`
	Port         int      `yaml:"port"`
	LogLevel     string   `yaml:"log_level"`
	DeviceURL    string   `yaml:"device_url"`
	InsecureTLS  bool     `yaml:"insecure_tls"`
	SessionTTL   string   `yaml:"session_ttl"`
	PollBaseline string   `yaml:"poll_baseline"`
	WindowSize   int      `yaml:"window_size"`
	HistoryPath  string   `yaml:"history_path"`
	CORSOrigins  []string `yaml:"cors_origins"`
}

func Defaults() Config {
	return Config{
		Bind:         "127.0.0.1",
		Port:         9220,
		LogLevel:     zerolog.InfoLevel,
		SessionTTL:   30 * time.Minute,
		PollBaseline: 2 * time.Second,
		WindowSize:   120,
		CORSOrigins:  []string{"http://localhost:5173", "http://127.0.0.1:5173"},
	}
}

// Load reads path over the defaults. A missing file is not an error; the
// caller follows with FromEnv overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if fc.Bind != "" {
		cfg.Bind = fc.Bind
	}
	if fc.Port > 0 {
		cfg.Port = fc.Port
	}
	if fc.LogLevel != "" {
		if l, err := zerolog.ParseLevel(fc.LogLevel); err == nil {
			cfg.LogLevel = l
		}
	}
	if fc.DeviceURL != "" {
		cfg.DeviceURL = fc.DeviceURL
	}
	cfg.InsecureTLS = cfg.InsecureTLS || fc.InsecureTLS
	if d, err := time.ParseDuration(fc.SessionTTL); err == nil && d > 0 {
		cfg.SessionTTL = d
	}
	if d, err := time.ParseDuration(fc.PollBaseline); err == nil && d > 0 {
		cfg.PollBaseline = d
	}
	if fc.WindowSize > 0 {
		cfg.WindowSize = fc.WindowSize
	}
	if fc.HistoryPath != "" {
		cfg.HistoryPath = fc.HistoryPath
	}
	if len(fc.CORSOrigins) > 0 {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	return cfg, nil
}

// FromEnv applies RDASH_* environment overrides on top of cfg. The
// securecookie keys only ever come from the environment; random keys are
// generated at startup when unset, invalidating cookies across restarts.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("RDASH_BIND"); v != "" {
		cfg.Bind = v
	}
	if v := os.Getenv("RDASH_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Port = p
		}
	}
	if v := os.Getenv("RDASH_LOG"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			cfg.LogLevel = l
		}
	}
	if v := os.Getenv("RDASH_DEVICE_URL"); v != "" {
		cfg.DeviceURL = v
	}
	if v := os.Getenv("RDASH_INSECURE_TLS"); v != "" {
		cfg.InsecureTLS = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("RDASH_DEV"); v != "" {
		cfg.DevMode = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("RDASH_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv("RDASH_POLL_BASELINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollBaseline = d
		}
	}
	if v := os.Getenv("RDASH_HISTORY_PATH"); v != "" {
		cfg.HistoryPath = v
	}
	if v := os.Getenv("RDASH_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("RDASH_SESSION_HASH_KEY"); v != "" {
		cfg.SessionHashKey = []byte(v)
	}
	if v := os.Getenv("RDASH_SESSION_BLOCK_KEY"); v != "" {
		cfg.SessionBlockKey = []byte(v)
	}
	return cfg
}

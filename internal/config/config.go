package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const envConfigPath = "HUNTLAB_CONFIG"

// Config holds client settings. Values come from an optional YAML file and
// HUNTLAB_-prefixed environment variables; the environment wins.
type Config struct {
	BaseURL     string        `yaml:"base_url" env:"HUNTLAB_BASE_URL" env-default:"http://localhost:8000"`
	StatePath   string        `yaml:"state_path" env:"HUNTLAB_STATE_PATH"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"HUNTLAB_HTTP_TIMEOUT" env-default:"15s"`
	RatePerSec  int           `yaml:"rate_per_sec" env:"HUNTLAB_RATE_PER_SEC" env-default:"10"`
	RateBurst   int           `yaml:"rate_burst" env:"HUNTLAB_RATE_BURST" env-default:"20"`
	MetricsAddr string        `yaml:"metrics_addr" env:"HUNTLAB_METRICS_ADDR"`
}

// Load reads the configuration file (if present), applies environment
// overrides and fills defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfgPath := resolveConfigPath()
	if st, err := os.Stat(cfgPath); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "huntlab.yaml"
	}
	return filepath.Join(dir, "huntlab", "config.yaml")
}

func normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.StatePath = strings.TrimSpace(cfg.StatePath)
	if cfg.StatePath == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.StatePath = filepath.Join(dir, "huntlab", "session.db")
		} else {
			cfg.StatePath = "huntlab-session.db"
		}
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.RateBurst < cfg.RatePerSec {
		cfg.RateBurst = cfg.RatePerSec
	}
}

// Validate rejects configurations the client cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if cfg.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: base_url %q is not an absolute URL", cfg.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: base_url scheme %q is not supported", u.Scheme)
	}
	return nil
}

package config

import (
	"testing"
	"time"
)

func TestLoadAppliesEnvAndDefaults(t *testing.T) {
	t.Setenv("HUNTLAB_CONFIG", "/nonexistent/huntlab.yaml")
	t.Setenv("HUNTLAB_BASE_URL", "https://api.example.test/")
	t.Setenv("HUNTLAB_RATE_PER_SEC", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://api.example.test" {
		t.Fatalf("base url not normalized: %q", cfg.BaseURL)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("unexpected timeout default: %v", cfg.HTTPTimeout)
	}
	if cfg.RatePerSec != 5 {
		t.Fatalf("rate override lost: %d", cfg.RatePerSec)
	}
	if cfg.RateBurst < cfg.RatePerSec {
		t.Fatalf("burst below rate: %d < %d", cfg.RateBurst, cfg.RatePerSec)
	}
	if cfg.StatePath == "" {
		t.Fatalf("state path not defaulted")
	}
}

func TestValidateRejectsBadBaseURL(t *testing.T) {
	cases := []string{"", "not-a-url", "ftp://example.test", "://bad"}
	for _, base := range cases {
		cfg := &Config{BaseURL: base}
		if err := Validate(cfg); err == nil {
			t.Fatalf("expected error for base_url %q", base)
		}
	}
	if err := Validate(&Config{BaseURL: "http://localhost:8000"}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

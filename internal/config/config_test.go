package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUMMARIZER_BACKEND", "none")
	t.Setenv("API_USER", "")
	t.Setenv("API_PASSWORD_HASH", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProgressResetDelay != time.Second || cfg.DetectorMaxResults != 3 || cfg.ExportPrefix != "ai-results" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AuthEnabled() {
		t.Fatalf("auth should be disabled by default")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			TranslationTimeout: time.Second,
			DetectorMaxResults: 1,
			SummarizerBackend:  "openai",
			ExportPrefix:       "x",
		}
	}

	cases := map[string]func(*Config){
		"timeout":        func(c *Config) { c.TranslationTimeout = 0 },
		"max results":    func(c *Config) { c.DetectorMaxResults = 0 },
		"backend":        func(c *Config) { c.SummarizerBackend = "claude" },
		"gemini keys":    func(c *Config) { c.SummarizerBackend = "gemini" },
		"reset delay":    func(c *Config) { c.ProgressResetDelay = -time.Second },
		"export prefix":  func(c *Config) { c.ExportPrefix = " " },
		"half auth":      func(c *Config) { c.APIUser = "admin" },
		"negative limit": func(c *Config) { c.RateLimitRPS = -1 },
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	cfg := base()
	cfg.SummarizerBackend = " Gemini "
	cfg.GeminiAPIKeys = []string{"k1", " ", "k2"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if keys := cfg.GeminiKeys(); len(keys) != 2 {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	t.Parallel()

	cfg := &Config{CORSAllowedOrigins: "http://a, http://b,,http://a"}
	origins := cfg.CORSAllowedOriginsList()
	if len(origins) != 2 || origins[0] != "http://a" || origins[1] != "http://b" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

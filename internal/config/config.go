package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	TranslationProvider string        `envconfig:"TRANSLATION_PROVIDER" default:"local"`
	TranslationEndpoint string        `envconfig:"TRANSLATION_ENDPOINT" default:"http://127.0.0.1:8845/v1"`
	TranslationModel    string        `envconfig:"TRANSLATION_MODEL" default:"tencent/HY-MT1.5-7B"`
	TranslationTimeout  time.Duration `envconfig:"TRANSLATION_TIMEOUT" default:"120s"`

	DetectorLowAccuracy bool `envconfig:"DETECTOR_LOW_ACCURACY" default:"false"`
	DetectorMaxResults  int  `envconfig:"DETECTOR_MAX_RESULTS" default:"3"`

	SummarizerBackend  string   `envconfig:"SUMMARIZER_BACKEND" default:"openai"`
	SummarizerEndpoint string   `envconfig:"SUMMARIZER_ENDPOINT" default:"http://127.0.0.1:8845/v1"`
	SummarizerModel    string   `envconfig:"SUMMARIZER_MODEL" default:""`
	SummarizerAPIKey   string   `envconfig:"SUMMARIZER_API_KEY" default:""`
	GeminiAPIKeys      []string `envconfig:"GEMINI_API_KEYS" default:""`
	GeminiModel        string   `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	VoiceEnabled  bool   `envconfig:"VOICE_ENABLED" default:"false"`
	VoiceEndpoint string `envconfig:"VOICE_ENDPOINT" default:""`
	VoiceAPIKey   string `envconfig:"VOICE_API_KEY" default:""`
	STTModel      string `envconfig:"STT_MODEL" default:"whisper-1"`
	TTSModel      string `envconfig:"TTS_MODEL" default:"tts-1"`
	TTSVoice      string `envconfig:"TTS_VOICE" default:"alloy"`

	ProgressResetDelay time.Duration `envconfig:"PROGRESS_RESET_DELAY" default:"1s"`
	ExportPrefix       string        `envconfig:"EXPORT_PREFIX" default:"ai-results"`
	TrainingDelay      time.Duration `envconfig:"TRAINING_DELAY" default:"3s"`

	CORSAllowedOrigins string  `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
	APIUser            string  `envconfig:"API_USER" default:""`
	APIPasswordHash    string  `envconfig:"API_PASSWORD_HASH" default:""`
	RateLimitRPS       float64 `envconfig:"RATE_LIMIT_RPS" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.TranslationTimeout <= 0 {
		return fmt.Errorf("TRANSLATION_TIMEOUT must be > 0")
	}
	if c.DetectorMaxResults < 1 {
		return fmt.Errorf("DETECTOR_MAX_RESULTS must be >= 1")
	}
	switch c.SummarizerBackendName() {
	case "openai", "none":
	case "gemini":
		if len(c.GeminiKeys()) == 0 {
			return fmt.Errorf("GEMINI_API_KEYS is required when SUMMARIZER_BACKEND=gemini")
		}
	default:
		return fmt.Errorf("SUMMARIZER_BACKEND must be one of openai, gemini, none")
	}
	if c.ProgressResetDelay < 0 {
		return fmt.Errorf("PROGRESS_RESET_DELAY must be >= 0")
	}
	if c.TrainingDelay < 0 {
		return fmt.Errorf("TRAINING_DELAY must be >= 0")
	}
	if strings.TrimSpace(c.ExportPrefix) == "" {
		return fmt.Errorf("EXPORT_PREFIX is required")
	}
	if (strings.TrimSpace(c.APIUser) == "") != (strings.TrimSpace(c.APIPasswordHash) == "") {
		return fmt.Errorf("API_USER and API_PASSWORD_HASH must be set together")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	return nil
}

func (c *Config) SummarizerBackendName() string {
	return strings.ToLower(strings.TrimSpace(c.SummarizerBackend))
}

// GeminiKeys returns the configured keys without blanks.
func (c *Config) GeminiKeys() []string {
	keys := make([]string, 0, len(c.GeminiAPIKeys))
	for _, key := range c.GeminiAPIKeys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

// AuthEnabled reports whether API requests need basic auth.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.APIUser) != ""
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

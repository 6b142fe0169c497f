package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend completes a prompt with a hosted or local language model.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
	// Check verifies the backend is reachable and serves the configured model.
	Check(ctx context.Context) error
}

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendNone   = "none"
)

type Settings struct {
	Backend     string
	Endpoint    string
	Model       string
	APIKey      string
	GeminiKeys  []string
	GeminiModel string
	Timeout     time.Duration
}

// NewBackend builds the configured backend. BackendNone yields a nil Backend
// and no error.
func NewBackend(settings Settings) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendOpenAI:
		return NewOpenAIBackend(settings.Endpoint, settings.Model, settings.APIKey, settings.Timeout), nil
	case BackendGemini:
		backend, err := NewGeminiBackend(settings.GeminiKeys, settings.GeminiModel)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown summarizer backend %q", settings.Backend)
	}
}

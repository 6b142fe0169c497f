package summarize

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type generateFunc func(ctx context.Context, apiKey, model, prompt string) (string, error)

// GeminiBackend calls the Gemini API, rotating through API keys when one is
// rate limited.
type GeminiBackend struct {
	model    string
	generate generateFunc

	mu         sync.Mutex
	apiKeys    []string
	currentKey int
}

func NewGeminiBackend(apiKeys []string, model string) (*GeminiBackend, error) {
	keys := make([]string, 0, len(apiKeys))
	for _, key := range apiKeys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("gemini backend needs at least one API key")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiBackend{model: model, apiKeys: keys, generate: generateWithGenAI}, nil
}

func (b *GeminiBackend) Name() string {
	return BackendGemini
}

// Complete sends prompt with the current key and rotates on 429 / quota errors
// until every key has been tried once.
func (b *GeminiBackend) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for range b.keyCount() {
		key := b.key()
		text, err := b.generate(ctx, key, b.model, prompt)
		if err == nil {
			return text, nil
		}
		if !isQuotaError(err) {
			return "", fmt.Errorf("generate content: %w", err)
		}
		b.rotateKey()
		lastErr = err
	}
	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (b *GeminiBackend) Check(ctx context.Context) error {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  b.key(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if _, err := client.Models.Get(ctx, b.model, nil); err != nil {
		return fmt.Errorf("get model %s: %w", b.model, err)
	}
	return nil
}

func (b *GeminiBackend) keyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.apiKeys)
}

func (b *GeminiBackend) key() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apiKeys[b.currentKey]
}

func (b *GeminiBackend) rotateKey() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentKey = (b.currentKey + 1) % len(b.apiKeys)
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func generateWithGenAI(ctx context.Context, apiKey, model, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

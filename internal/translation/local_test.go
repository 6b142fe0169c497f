package translation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"horse.fit/aidesk/internal/capability"
)

func newChatServer(t *testing.T, reply string, models ...string) (*httptest.Server, *[]string) {
	t.Helper()

	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			data := make([]map[string]string, 0, len(models))
			for _, model := range models {
				data = append(data, map[string]string{"id": model})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		case "/v1/chat/completions":
			var body localChatRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if len(body.Messages) > 0 {
				prompts = append(prompts, body.Messages[0].Content)
			}
			if reply == "" {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"error":{"message":"model crashed"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  ` + reply + `  "}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &prompts
}

func TestLocalProviderTranslate(t *testing.T) {
	t.Parallel()

	server, prompts := newChatServer(t, "Hola")
	provider := NewLocalProvider(server.URL, "", time.Second)

	resp, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", SourceLang: "en-US", TargetLang: "ES"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if resp.Text != "Hola" || resp.SourceLang != "en" || resp.TargetLang != "es" || resp.ProviderName != "local" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(*prompts) != 1 || !strings.Contains((*prompts)[0], "into Spanish") {
		t.Fatalf("unexpected prompts: %v", *prompts)
	}
}

func TestLocalProviderTranslateSurfacesEndpointError(t *testing.T) {
	t.Parallel()

	server, _ := newChatServer(t, "")
	provider := NewLocalProvider(server.URL, "m", time.Second)

	_, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "es"})
	if err == nil || !strings.Contains(err.Error(), "model crashed") {
		t.Fatalf("expected endpoint message in error, got %v", err)
	}
}

func TestLocalProviderCheck(t *testing.T) {
	t.Parallel()

	server, _ := newChatServer(t, "x", "tencent/HY-MT1.5-7B")
	if err := NewLocalProvider(server.URL, "", time.Second).Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if err := NewLocalProvider(server.URL, "other", time.Second).Check(context.Background()); err == nil {
		t.Fatalf("expected check error for unserved model")
	}
}

func TestBuildHYMTPromptUsesChineseTemplate(t *testing.T) {
	t.Parallel()

	prompt := buildHYMTPrompt("Hello", "en", "zh")
	if !strings.HasPrefix(prompt, "将以下文本翻译为中文") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	prompt = buildHYMTPrompt("Bonjour", "fr", "de")
	if !strings.HasPrefix(prompt, "Translate the following segment into German") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
}

func TestChatCompletionsURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"127.0.0.1:8845":                   "http://127.0.0.1:8845/v1/chat/completions",
		"http://host/v1/":                  "http://host/v1/chat/completions",
		"http://host/api":                  "http://host/api/v1/chat/completions",
		"https://host/v1/chat/completions": "https://host/v1/chat/completions",
		"":                                 DefaultLocalEndpoint + "/chat/completions",
	}
	for input, want := range cases {
		if got := chatCompletionsURL(normalizeEndpoint(input)); got != want {
			t.Fatalf("chatCompletionsURL(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCapabilityAvailability(t *testing.T) {
	t.Parallel()

	server, _ := newChatServer(t, "Hola", DefaultLocalModel)
	c := NewCapability(NewLocalProvider(server.URL, "", time.Second))
	ctx := context.Background()

	cases := []struct {
		pair capability.LanguagePair
		want capability.Availability
	}{
		{capability.NewLanguagePair("en", "es"), capability.Downloadable},
		{capability.NewLanguagePair("en", "en"), capability.Unavailable},
		{capability.NewLanguagePair("en", "xx"), capability.Unavailable},
	}
	for _, tc := range cases {
		got, err := c.Availability(ctx, tc.pair)
		if err != nil {
			t.Fatalf("Availability(%s) error = %v", tc.pair, err)
		}
		if got != tc.want {
			t.Fatalf("Availability(%s) = %s, want %s", tc.pair, got, tc.want)
		}
	}

	session, err := c.Create(ctx, capability.NewLanguagePair("en", "es"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := session.Ready(ctx); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if got, _ := c.Availability(ctx, capability.NewLanguagePair("en", "es")); got != capability.Available {
		t.Fatalf("expected available after ready, got %s", got)
	}
	out, err := session.Translate(ctx, "Hello")
	if err != nil || out != "Hola" {
		t.Fatalf("Translate() = %q, %v", out, err)
	}
}

func TestRegistryFallsBackToLocal(t *testing.T) {
	t.Parallel()

	registry := NewRegistryFromSettings(Settings{Provider: "missing"})
	if registry.DefaultProvider() != DefaultProviderName {
		t.Fatalf("unexpected default provider %q", registry.DefaultProvider())
	}
	provider, err := registry.Provider("")
	if err != nil || provider.Name() != "local" {
		t.Fatalf("Provider() = %v, %v", provider, err)
	}
	if _, err := registry.Provider("google"); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if options := LanguageOptions(registry); len(options) != len(SupportedTranslationLanguageCodes()) {
		t.Fatalf("unexpected option count %d", len(options))
	}
}

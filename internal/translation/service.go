// Package translation implements the translation capability on top of
// pluggable text translation providers.
package translation

import (
	"context"

	"horse.fit/aidesk/internal/capability"
)

// Provider translates free-form text between languages.
type Provider interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)
	Name() string
	SupportedLanguages() []string
}

// Checker is implemented by providers that can check their backend is reachable
// and has its model loaded.
type Checker interface {
	Check(ctx context.Context) error
}

// TranslateRequest describes one translation request.
type TranslateRequest struct {
	Text       string
	SourceLang string // ISO 639-1 (for example: "zh", "en")
	TargetLang string
}

// TranslateResponse contains translated text and provider metadata.
type TranslateResponse struct {
	Text         string
	SourceLang   string
	TargetLang   string
	ProviderName string
	LatencyMs    int64
}

func normalizeLangCode(raw string) string {
	return capability.NormalizeLanguage(raw)
}

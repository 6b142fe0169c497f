package translation

import (
	"context"
	"fmt"
	"sync/atomic"

	"horse.fit/aidesk/internal/capability"
)

// Capability exposes a Provider as a capability.Translator. Pairs the provider
// does not list, and pairs whose languages match, are unavailable. Until the
// provider has passed a check, supported pairs report downloadable.
type Capability struct {
	provider Provider
	checked   atomic.Bool
}

var _ capability.Translator = (*Capability)(nil)

func NewCapability(provider Provider) *Capability {
	return &Capability{provider: provider}
}

func (c *Capability) Provider() Provider {
	return c.provider
}

func (c *Capability) Availability(_ context.Context, pair capability.LanguagePair) (capability.Availability, error) {
	if c == nil || c.provider == nil {
		return capability.Unavailable, fmt.Errorf("translation provider is not configured")
	}
	if !c.Supports(pair) {
		return capability.Unavailable, nil
	}
	if _, canCheck := c.provider.(Checker); canCheck && !c.checked.Load() {
		return capability.Downloadable, nil
	}
	return capability.Available, nil
}

// Supports reports whether the provider lists both languages of pair.
func (c *Capability) Supports(pair capability.LanguagePair) bool {
	source := normalizeLangCode(pair.Source)
	target := normalizeLangCode(pair.Target)
	if source == "" || target == "" || source == target {
		return false
	}

	var hasSource, hasTarget bool
	for _, code := range c.provider.SupportedLanguages() {
		switch normalizeLangCode(code) {
		case source:
			hasSource = true
		case target:
			hasTarget = true
		}
	}
	return hasSource && hasTarget
}

func (c *Capability) Create(_ context.Context, pair capability.LanguagePair) (capability.TranslatorSession, error) {
	if !c.Supports(pair) {
		return nil, fmt.Errorf("translation pair %s is not supported by %s", pair, c.provider.Name())
	}
	return &session{owner: c, pair: pair}, nil
}

type session struct {
	owner *Capability
	pair  capability.LanguagePair
}

func (s *session) Ready(ctx context.Context) error {
	checker, ok := s.owner.provider.(Checker)
	if !ok || s.owner.checked.Load() {
		return nil
	}
	if err := checker.Check(ctx); err != nil {
		return err
	}
	s.owner.checked.Store(true)
	return nil
}

func (s *session) Translate(ctx context.Context, text string) (string, error) {
	resp, err := s.owner.provider.Translate(ctx, TranslateRequest{
		Text:       text,
		SourceLang: s.pair.Source,
		TargetLang: s.pair.Target,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

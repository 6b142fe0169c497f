package capability

import "strings"

// NormalizeLanguageTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeLanguageTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(strings.ReplaceAll(trimmed, "_", "-"), "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		for _, r := range part {
			if r < 'a' || r > 'z' {
				return ""
			}
		}
		normalized = append(normalized, part)
	}
	return strings.Join(normalized, "-")
}

// NormalizeLanguage returns the primary language subtag (for example, "en" from "en-US").
func NormalizeLanguage(raw string) string {
	tag := NormalizeLanguageTag(raw)
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

// LanguagePair scopes a translation session. Sessions are never reconfigured;
// a different pair needs a new session.
type LanguagePair struct {
	Source string `json:"source_lang"`
	Target string `json:"target_lang"`
}

func NewLanguagePair(source, target string) LanguagePair {
	return LanguagePair{Source: NormalizeLanguage(source), Target: NormalizeLanguage(target)}
}

func (p LanguagePair) String() string {
	return p.Source + "→" + p.Target
}

// Validate reports missing languages.
func (p LanguagePair) Validate() map[string]string {
	errs := map[string]string{}
	if p.Source == "" {
		errs["source_lang"] = "must be a valid language code"
	}
	if p.Target == "" {
		errs["target_lang"] = "must be a valid language code"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

package translation

import (
	"sort"
	"strings"
)

type LanguageOption struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
}

type languageLabel struct {
	english string
	native  string
	// chinese is used by the zh<=>xx prompt template.
	chinese string
}

var translationLanguageLabels = map[string]languageLabel{
	"ar": {english: "Arabic", native: "العربية", chinese: "阿拉伯语"},
	"bn": {english: "Bengali", native: "বাংলা", chinese: "孟加拉语"},
	"de": {english: "German", native: "Deutsch", chinese: "德语"},
	"en": {english: "English", native: "English", chinese: "英语"},
	"es": {english: "Spanish", native: "Español", chinese: "西班牙语"},
	"fr": {english: "French", native: "Français", chinese: "法语"},
	"hi": {english: "Hindi", native: "हिन्दी", chinese: "印地语"},
	"id": {english: "Indonesian", native: "Bahasa Indonesia", chinese: "印度尼西亚语"},
	"it": {english: "Italian", native: "Italiano", chinese: "意大利语"},
	"ja": {english: "Japanese", native: "日本語", chinese: "日语"},
	"ko": {english: "Korean", native: "한국어", chinese: "韩语"},
	"nl": {english: "Dutch", native: "Nederlands", chinese: "荷兰语"},
	"pl": {english: "Polish", native: "Polski", chinese: "波兰语"},
	"pt": {english: "Portuguese", native: "Português", chinese: "葡萄牙语"},
	"ru": {english: "Russian", native: "Русский", chinese: "俄语"},
	"th": {english: "Thai", native: "ไทย", chinese: "泰语"},
	"tr": {english: "Turkish", native: "Türkçe", chinese: "土耳其语"},
	"uk": {english: "Ukrainian", native: "Українська", chinese: "乌克兰语"},
	"vi": {english: "Vietnamese", native: "Tiếng Việt", chinese: "越南语"},
	"zh": {english: "Chinese", native: "中文", chinese: "中文"},
}

func SupportedTranslationLanguageCodes() []string {
	codes := make([]string, 0, len(translationLanguageLabels))
	for code := range translationLanguageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LanguageOptions lists every language known to the catalog or to a registered provider.
func LanguageOptions(registry *Registry) []LanguageOption {
	supported := map[string]struct{}{}
	for code := range translationLanguageLabels {
		supported[code] = struct{}{}
	}
	for _, code := range registry.supportedCodes() {
		if normalized := normalizeLangCode(code); normalized != "" {
			supported[normalized] = struct{}{}
		}
	}

	codes := make([]string, 0, len(supported))
	for code := range supported {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	options := make([]LanguageOption, 0, len(codes))
	for _, code := range codes {
		if labels, ok := translationLanguageLabels[code]; ok {
			options = append(options, LanguageOption{Code: code, Label: labels.english, Native: labels.native})
			continue
		}
		options = append(options, LanguageOption{Code: code, Label: strings.ToUpper(code)})
	}
	return options
}

// LanguageName returns the English name for code, or the code itself.
func LanguageName(code string) string {
	if labels, ok := translationLanguageLabels[normalizeLangCode(code)]; ok {
		return labels.english
	}
	return strings.TrimSpace(code)
}

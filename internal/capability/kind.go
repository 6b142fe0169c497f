// Package capability defines the AI capabilities a workflow can drive, the
// sessions they hand out, and the errors workflows report.
package capability

import (
	"fmt"
	"strings"
)

// Kind names one capability.
type Kind string

const (
	KindTranslation   Kind = "translation"
	KindDetection     Kind = "detection"
	KindSummarization Kind = "summarization"
)

// Kinds lists every capability kind in display order.
func Kinds() []Kind {
	return []Kind{KindTranslation, KindDetection, KindSummarization}
}

// Label is the human-readable name used in notices and exports.
func (k Kind) Label() string {
	switch k {
	case KindTranslation:
		return "Translation"
	case KindDetection:
		return "Language detection"
	case KindSummarization:
		return "Summarization"
	default:
		return string(k)
	}
}

func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "translation", "translate", "translator":
		return KindTranslation, nil
	case "detection", "detect", "detector", "language-detection":
		return KindDetection, nil
	case "summarization", "summarize", "summarizer", "summary":
		return KindSummarization, nil
	default:
		return "", fmt.Errorf("unknown capability %q", raw)
	}
}

// Availability is the tri-state readiness of a capability for given parameters.
type Availability string

const (
	Available    Availability = "available"
	Downloadable Availability = "downloadable"
	Unavailable  Availability = "unavailable"
)

// ParseAvailability accepts the values reported by capability backends.
// "after-download" and "readily" are accepted as aliases.
func ParseAvailability(raw string) (Availability, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available", "readily":
		return Available, nil
	case "downloadable", "downloading", "after-download":
		return Downloadable, nil
	case "unavailable", "no":
		return Unavailable, nil
	default:
		return "", fmt.Errorf("unknown availability %q", raw)
	}
}

// Usable reports whether a session may be created.
func (a Availability) Usable() bool {
	return a == Available || a == Downloadable
}

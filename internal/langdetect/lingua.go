// Package langdetect implements language detection with lingua.
package langdetect

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/aidesk/internal/capability"
)

// DefaultMaxResults caps the ranked guesses returned by Detect.
const DefaultMaxResults = 3

type Options struct {
	LowAccuracy bool
	MaxResults  int
}

// Detector builds its lingua model set once, on first use.
type Detector struct {
	opts  Options
	once  sync.Once
	built chan struct{}
	inner lingua.LanguageDetector
}

func NewDetector(opts Options) *Detector {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	return &Detector{opts: opts, built: make(chan struct{})}
}

// Loaded reports whether the language models are in memory.
func (d *Detector) Loaded() bool {
	select {
	case <-d.built:
		return true
	default:
		return false
	}
}

// Load builds the detector or waits for a concurrent build. It returns early
// when ctx is done; the build itself keeps running.
func (d *Detector) Load(ctx context.Context) error {
	go d.once.Do(d.build)
	select {
	case <-d.built:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Detector) build() {
	builder := lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	if d.opts.LowAccuracy {
		builder = builder.WithLowAccuracyMode()
	}
	d.inner = builder.WithPreloadedLanguageModels().Build()
	close(d.built)
}

func (d *Detector) model() lingua.LanguageDetector {
	d.once.Do(d.build)
	return d.inner
}

// Rank returns ISO 639-1 guesses for text in descending confidence order.
func (d *Detector) Rank(text string) []capability.Detection {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return nil
	}

	values := d.model().ComputeLanguageConfidenceValues(sample)
	out := make([]capability.Detection, 0, d.opts.MaxResults)
	for _, value := range values {
		if value.Value() <= 0 {
			continue
		}
		code := isoCode(value.Language())
		if code == "" {
			continue
		}
		out = append(out, capability.Detection{Language: code, Confidence: value.Value()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > d.opts.MaxResults {
		out = out[:d.opts.MaxResults]
	}
	return out
}

// DetectISO6391 returns the single most likely language, or "" when the text
// is too short to judge.
func (d *Detector) DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := d.model().DetectLanguageOf(sample)
	if !exists {
		return ""
	}
	return isoCode(language)
}

func isoCode(language lingua.Language) string {
	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

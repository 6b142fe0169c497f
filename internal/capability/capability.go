package capability

import "context"

// Session is a created handle that may still be initializing. Ready blocks until
// the session is usable; it may take as long as a model download.
type Session interface {
	Ready(ctx context.Context) error
}

type Translator interface {
	Availability(ctx context.Context, pair LanguagePair) (Availability, error)
	Create(ctx context.Context, pair LanguagePair) (TranslatorSession, error)
}

type TranslatorSession interface {
	Session
	Translate(ctx context.Context, text string) (string, error)
}

type LanguageDetector interface {
	Availability(ctx context.Context) (Availability, error)
	Create(ctx context.Context) (DetectorSession, error)
}

type DetectorSession interface {
	Session
	// Detect returns guesses ordered by descending confidence.
	Detect(ctx context.Context, text string) ([]Detection, error)
}

type Summarizer interface {
	Availability(ctx context.Context) (Availability, error)
	Create(ctx context.Context, opts SummaryOptions) (SummarizerSession, error)
}

type SummarizerSession interface {
	Session
	Summarize(ctx context.Context, text string) (string, error)
}

// Surface is the set of capabilities the host provides. A nil member means the
// capability is absent altogether.
type Surface struct {
	Translator Translator
	Detector   LanguageDetector
	Summarizer Summarizer
}

// Present reports whether the capability for kind exists on the surface.
func (s Surface) Present(kind Kind) bool {
	switch kind {
	case KindTranslation:
		return s.Translator != nil
	case KindDetection:
		return s.Detector != nil
	case KindSummarization:
		return s.Summarizer != nil
	default:
		return false
	}
}

// Status is a point-in-time availability report for one capability.
type Status struct {
	Kind         Kind         `json:"kind"`
	Present      bool         `json:"present"`
	Availability Availability `json:"availability"`
	Error        string       `json:"error,omitempty"`
}

// Check queries availability for every capability. Translation is checked for pair.
func (s Surface) Check(ctx context.Context, pair LanguagePair) []Status {
	out := make([]Status, 0, 3)
	for _, kind := range Kinds() {
		status := Status{Kind: kind, Present: s.Present(kind), Availability: Unavailable}
		if !status.Present {
			out = append(out, status)
			continue
		}

		var (
			availability Availability
			err          error
		)
		switch kind {
		case KindTranslation:
			availability, err = s.Translator.Availability(ctx, pair)
		case KindDetection:
			availability, err = s.Detector.Availability(ctx)
		case KindSummarization:
			availability, err = s.Summarizer.Availability(ctx)
		}
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Availability = availability
		}
		out = append(out, status)
	}
	return out
}

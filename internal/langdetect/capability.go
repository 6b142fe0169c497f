package langdetect

import (
	"context"

	"horse.fit/aidesk/internal/capability"
)

// Capability exposes a Detector as a capability.LanguageDetector.
type Capability struct {
	detector *Detector
}

var _ capability.LanguageDetector = (*Capability)(nil)

func NewCapability(detector *Detector) *Capability {
	return &Capability{detector: detector}
}

func (c *Capability) Availability(context.Context) (capability.Availability, error) {
	if c.detector.Loaded() {
		return capability.Available, nil
	}
	return capability.Downloadable, nil
}

func (c *Capability) Create(context.Context) (capability.DetectorSession, error) {
	return session{detector: c.detector}, nil
}

type session struct {
	detector *Detector
}

func (s session) Ready(ctx context.Context) error {
	return s.detector.Load(ctx)
}

func (s session) Detect(ctx context.Context, text string) ([]capability.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.detector.Rank(text), nil
}

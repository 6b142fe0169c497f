package summarize

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"horse.fit/aidesk/internal/capability"
)

// Capability exposes a Backend as a capability.Summarizer. A nil backend
// reports unavailable.
type Capability struct {
	backend Backend
	checked  atomic.Bool
}

var _ capability.Summarizer = (*Capability)(nil)

func NewCapability(backend Backend) *Capability {
	return &Capability{backend: backend}
}

func (c *Capability) Availability(context.Context) (capability.Availability, error) {
	switch {
	case c.backend == nil:
		return capability.Unavailable, nil
	case c.checked.Load():
		return capability.Available, nil
	default:
		return capability.Downloadable, nil
	}
}

func (c *Capability) Create(_ context.Context, opts capability.SummaryOptions) (capability.SummarizerSession, error) {
	if c.backend == nil {
		return nil, fmt.Errorf("no summarizer backend is configured")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &session{owner: c, opts: opts}, nil
}

type session struct {
	owner *Capability
	opts  capability.SummaryOptions
}

func (s *session) Ready(ctx context.Context) error {
	if s.owner.checked.Load() {
		return nil
	}
	if err := s.owner.backend.Check(ctx); err != nil {
		return err
	}
	s.owner.checked.Store(true)
	return nil
}

func (s *session) Summarize(ctx context.Context, text string) (string, error) {
	out, err := s.owner.backend.Complete(ctx, BuildPrompt(s.opts, text))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%s backend returned an empty summary", s.owner.backend.Name())
	}
	return out, nil
}

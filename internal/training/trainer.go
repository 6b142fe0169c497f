// Package training provides a simulated custom model training job. No model
// is trained; the job waits and returns a fresh identifier.
package training

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/aidesk/internal/capability"
)

// DefaultDelay is how long a simulated run takes.
const DefaultDelay = 3 * time.Second

// ErrTrainingInProgress is returned when starting a second run.
var ErrTrainingInProgress = errors.New("training already running")

type Request struct {
	Name     string          `json:"name"`
	BaseKind capability.Kind `json:"base_capability"`
	Examples []string        `json:"examples"`
}

func (r Request) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "is required"
	}
	if _, err := capability.ParseKind(string(r.BaseKind)); err != nil {
		errs["base_capability"] = "must be translation, detection, or summarization"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type Result struct {
	ModelID     string          `json:"model_id"`
	Name        string          `json:"name"`
	BaseKind    capability.Kind `json:"base_capability"`
	Examples    int             `json:"examples"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Trainer runs at most one simulated job at a time.
type Trainer struct {
	delay  time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
}

func NewTrainer(delay time.Duration, logger zerolog.Logger) *Trainer {
	if delay < 0 {
		delay = 0
	}
	return &Trainer{delay: delay, logger: logger}
}

func (t *Trainer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Train waits for the configured delay and returns a fabricated model id.
func (t *Trainer) Train(ctx context.Context, req Request) (*Result, error) {
	kind, err := capability.ParseKind(string(req.BaseKind))
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil, ErrTrainingInProgress
	}
	t.running = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	t.logger.Info().Str("name", req.Name).Str("base", string(kind)).Int("examples", len(req.Examples)).Msg("training started")

	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("training cancelled: %w", ctx.Err())
	case <-timer.C:
	}

	result := &Result{
		ModelID:     "custom-" + uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		BaseKind:    kind,
		Examples:    len(req.Examples),
		CompletedAt: time.Now().UTC(),
	}
	t.logger.Info().Str("model_id", result.ModelID).Msg("training completed")
	return result, nil
}

package training

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aidesk/internal/capability"
)

func TestTrainReturnsCustomModelID(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(0, zerolog.Nop())
	result, err := trainer.Train(context.Background(), Request{Name: " legal ", BaseKind: capability.KindTranslation, Examples: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if !strings.HasPrefix(result.ModelID, "custom-") || len(result.ModelID) != len("custom-")+36 {
		t.Fatalf("unexpected model id %q", result.ModelID)
	}
	if result.Name != "legal" || result.Examples != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if trainer.Running() {
		t.Fatalf("trainer still marked running")
	}
}

func TestTrainRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := trainer.Train(ctx, Request{Name: "x", BaseKind: capability.KindSummarization})
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !trainer.Running() {
		if time.Now().After(deadline) {
			t.Fatalf("training never started")
		}
		time.Sleep(time.Millisecond)
	}
	if _, err := trainer.Train(context.Background(), Request{Name: "y", BaseKind: capability.KindDetection}); !errors.Is(err, ErrTrainingInProgress) {
		t.Fatalf("expected ErrTrainingInProgress, got %v", err)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	errs := Request{BaseKind: "vision"}.Validate()
	if errs["name"] == "" || errs["base_capability"] == "" {
		t.Fatalf("unexpected validation errors %v", errs)
	}
	if errs := (Request{Name: "n", BaseKind: "translate"}).Validate(); errs != nil {
		t.Fatalf("unexpected errors %v", errs)
	}
}

package workflow

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"horse.fit/aidesk/internal/capability"
)

func TestBatchFiltersBlankItemsAndSharesOneSession(t *testing.T) {
	t.Parallel()

	translator := newFakeTranslator()
	runner, _, _ := newTestRunner(capability.Surface{Translator: translator})

	result, err := runner.TranslateBatch(context.Background(), BatchRequest{
		Texts: []string{"a", "", "b"},
		Pair:  enToEs,
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if result.Total != 2 || result.Skipped != 1 || !result.Complete {
		t.Fatalf("unexpected batch result: %+v", result)
	}
	if len(result.Items) != 2 || result.Items[0].Output != "A" || result.Items[1].Output != "B" {
		t.Fatalf("unexpected batch items: %+v", result.Items)
	}
	if _, creates := translator.counts(); creates != 1 {
		t.Fatalf("expected exactly one session, got %d", creates)
	}
	if !reflect.DeepEqual(translator.translated, []string{"a", "b"}) {
		t.Fatalf("items translated out of order: %v", translator.translated)
	}

	batch := runner.Workspace().Snapshot().Batch
	if !batch.Complete || len(batch.Items) != 2 || batch.Total != 2 {
		t.Fatalf("unexpected workspace batch: %+v", batch)
	}
}

func TestBatchProgressPerItem(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 3, 7} {
		translator := newFakeTranslator()
		runner, _, events := newTestRunner(capability.Surface{Translator: translator})

		texts := make([]string, n)
		for i := range texts {
			texts[i] = "item"
		}
		if _, err := runner.TranslateBatch(context.Background(), BatchRequest{Texts: texts, Pair: enToEs}); err != nil {
			t.Fatalf("batch of %d: %v", n, err)
		}
		if _, creates := translator.counts(); creates != 1 {
			t.Fatalf("batch of %d created %d sessions", n, creates)
		}

		var seen []int
		for _, ev := range drain(events) {
			if ev.Type == EventTypeBatchItem {
				seen = append(seen, ev.Progress)
				if ev.Batch.Completed != len(seen) || ev.Batch.Total != n {
					t.Fatalf("unexpected batch event: %+v", ev.Batch)
				}
			}
		}
		if len(seen) != n {
			t.Fatalf("expected %d item events, got %d", n, len(seen))
		}
		for i, p := range seen {
			if want := BatchProgress(i+1, n); p != want {
				t.Fatalf("batch of %d: progress after item %d = %d, want %d", n, i+1, p, want)
			}
		}
	}

	if got := BatchProgress(1, 3); got != 33 {
		t.Fatalf("BatchProgress(1,3) = %d", got)
	}
	if got := BatchProgress(2, 3); got != 67 {
		t.Fatalf("BatchProgress(2,3) = %d", got)
	}
}

func TestBatchAbortsOnFirstFailureKeepingPartialResults(t *testing.T) {
	t.Parallel()

	translator := newFakeTranslator()
	translator.failOn = "b"
	runner, _, events := newTestRunner(capability.Surface{Translator: translator})

	result, err := runner.TranslateBatch(context.Background(), BatchRequest{
		Texts: []string{"a", "b", "c"},
		Pair:  enToEs,
	})
	if !errors.Is(err, capability.ErrInvocationFailure) {
		t.Fatalf("expected invocation failure, got %v", err)
	}
	if result.Complete || len(result.Items) != 1 {
		t.Fatalf("unexpected partial result: %+v", result)
	}
	if !reflect.DeepEqual(translator.translated, []string{"a"}) {
		t.Fatalf("batch continued past the failing item: %v", translator.translated)
	}

	batch := runner.Workspace().Snapshot().Batch
	if batch.Complete || len(batch.Items) != 1 || batch.Items[0].Output != "A" {
		t.Fatalf("unexpected workspace batch: %+v", batch)
	}
	if status := runner.Status(capability.KindTranslation); status.Progress != 33 || status.State != StateFailed {
		t.Fatalf("unexpected status: %+v", status)
	}

	ns := notices(drain(events))
	if len(ns) != 1 || ns[0].Message != "Batch translation failed. Please try again." {
		t.Fatalf("unexpected notices: %+v", ns)
	}
}

func TestBatchOfBlankItemsFailsValidation(t *testing.T) {
	t.Parallel()

	translator := newFakeTranslator()
	runner, _, _ := newTestRunner(capability.Surface{Translator: translator})

	result, err := runner.TranslateBatch(context.Background(), BatchRequest{
		Texts: []string{"", "  ", "\n"},
		Pair:  enToEs,
	})
	if !errors.Is(err, capability.ErrValidationEmpty) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if result.Total != 0 || result.Skipped != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if availability, creates := translator.counts(); availability != 0 || creates != 0 {
		t.Fatalf("expected no capability calls, got availability=%d create=%d", availability, creates)
	}
}

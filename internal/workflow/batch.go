package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"horse.fit/aidesk/internal/capability"
)

// BatchRequest translates every text with one shared language pair.
type BatchRequest struct {
	Texts []string                `json:"texts"`
	Pair  capability.LanguagePair `json:"pair"`
}

// BatchResult is index-aligned with the filtered texts. Items shorter than Total
// means the batch stopped early.
type BatchResult struct {
	Items    []BatchItem `json:"items"`
	Total    int         `json:"total"`
	Skipped  int         `json:"skipped"`
	Complete bool        `json:"complete"`
}

// FilterBatch drops blank texts, keeping order.
func FilterBatch(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}

// BatchProgress is the overall completion percentage after done of total items.
func BatchProgress(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// TranslateBatch creates one session, waits for it once and translates every
// text in order. The first failing item aborts the batch; items already
// translated stay in the workspace but the batch is not marked complete.
func (r *Runner) TranslateBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	kind := capability.KindTranslation
	texts := FilterBatch(req.Texts)
	result := BatchResult{
		Items:   make([]BatchItem, 0, len(texts)),
		Total:   len(texts),
		Skipped: len(req.Texts) - len(texts),
	}

	if len(texts) == 0 {
		_, err := r.reject(kind, capability.EmptyBatch())
		return result, err
	}

	exec, err := r.begin(kind)
	if err != nil {
		_, rejectErr := r.reject(kind, err)
		return result, rejectErr
	}

	if r.surface.Translator == nil {
		return result, exec.fail(capability.Absent(kind))
	}

	availability, err := r.surface.Translator.Availability(ctx, req.Pair)
	if err != nil {
		return result, exec.fail(batchFailed(fmt.Errorf("check availability: %w", err)))
	}
	if !availability.Usable() {
		return result, exec.fail(capability.NotAvailable(kind))
	}
	exec.advance(EventAvailable, 0)

	session, err := r.surface.Translator.Create(ctx, req.Pair)
	if err != nil {
		return result, exec.fail(batchFailed(fmt.Errorf("create session: %w", err)))
	}
	if session == nil {
		return result, exec.fail(batchFailed(errors.New("create session: no session returned")))
	}
	exec.advance(EventCreated, 0)

	if err := session.Ready(ctx); err != nil {
		return result, exec.fail(batchFailed(fmt.Errorf("await session ready: %w", err)))
	}
	exec.advance(EventReady, 0)

	r.workspace.startBatch(req.Pair, len(texts))
	for i, text := range texts {
		out, err := session.Translate(ctx, text)
		if err != nil {
			return result, exec.fail(batchFailed(fmt.Errorf("translate item %d of %d: %w", i+1, len(texts), err)))
		}

		item := BatchItem{Index: i, Input: text, Output: out}
		r.workspace.appendBatchItem(item)
		result.Items = append(result.Items, item)
		r.metrics.ObserveBatchItem(kind)

		exec.setProgress(BatchProgress(i+1, len(texts)))
		r.hub.Publish(Event{
			Type:     EventTypeBatchItem,
			Kind:     kind,
			State:    StateInvoking,
			Progress: BatchProgress(i+1, len(texts)),
			Batch:    &BatchItemEvent{Index: i, Completed: i + 1, Total: len(texts)},
		})
	}

	r.workspace.completeBatch()
	result.Complete = true
	exec.advance(EventInvoked, 100)
	r.notify(kind, Notice{
		Level:   NoticeSuccess,
		Message: fmt.Sprintf("Batch translation completed: %d items", len(texts)),
	})

	r.logger.Info().
		Str("kind", string(kind)).
		Str("source_lang", req.Pair.Source).
		Str("target_lang", req.Pair.Target).
		Int("items", len(texts)).
		Int("skipped", result.Skipped).
		Dur("elapsed", time.Since(exec.started)).
		Msg("batch succeeded")

	exec.release("succeeded")
	return result, nil
}

func batchFailed(cause error) *capability.Error {
	err := capability.Failed(capability.KindTranslation, cause)
	err.Message = "Batch translation failed. Please try again."
	return err
}

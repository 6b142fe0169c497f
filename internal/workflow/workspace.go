package workflow

import (
	"strings"
	"sync"
	"time"

	"horse.fit/aidesk/internal/capability"
)

type TranslationRecord struct {
	Input      string `json:"input"`
	Output     string `json:"output"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type DetectionRecord struct {
	Input      string                 `json:"input"`
	Output     string                 `json:"output"`
	Detections []capability.Detection `json:"detections"`
}

type SummaryRecord struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	SummaryType string `json:"summary_type"`
}

type BatchItem struct {
	Index  int    `json:"index"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

type BatchRecord struct {
	SourceLang string      `json:"source_lang"`
	TargetLang string      `json:"target_lang"`
	Total      int         `json:"total"`
	Items      []BatchItem `json:"items"`
	Complete   bool        `json:"complete"`
}

// Snapshot is a copy of the latest results across every workflow.
type Snapshot struct {
	Translation TranslationRecord `json:"translation"`
	Detection   DetectionRecord   `json:"detection"`
	Summary     SummaryRecord     `json:"summary"`
	Batch       BatchRecord       `json:"batch"`
}

// Workspace holds the process-wide state each workflow writes into. Each field is
// written only by its owning workflow.
type Workspace struct {
	mu        sync.RWMutex
	snapshot  Snapshot
	drafts    map[capability.Kind]string
	active    capability.Kind
	updatedAt time.Time
}

func NewWorkspace() *Workspace {
	return &Workspace{
		drafts: make(map[capability.Kind]string),
		active: capability.KindTranslation,
	}
}

func (w *Workspace) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := w.snapshot
	out.Detection.Detections = append([]capability.Detection(nil), w.snapshot.Detection.Detections...)
	out.Batch.Items = append([]BatchItem(nil), w.snapshot.Batch.Items...)
	return out
}

func (w *Workspace) UpdatedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.updatedAt
}

func (w *Workspace) setTranslation(rec TranslationRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshot.Translation = rec
	w.updatedAt = time.Now().UTC()
}

func (w *Workspace) setDetection(rec DetectionRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshot.Detection = rec
	w.updatedAt = time.Now().UTC()
}

func (w *Workspace) setSummary(rec SummaryRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshot.Summary = rec
	w.updatedAt = time.Now().UTC()
}

func (w *Workspace) startBatch(pair capability.LanguagePair, total int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshot.Batch = BatchRecord{
		SourceLang: pair.Source,
		TargetLang: pair.Target,
		Total:      total,
		Items:      make([]BatchItem, 0, total),
	}
	w.updatedAt = time.Now().UTC()
}

// appendBatchItem never lets the result list outgrow the request list.
func (w *Workspace) appendBatchItem(item BatchItem) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.snapshot.Batch.Items) >= w.snapshot.Batch.Total {
		return false
	}
	w.snapshot.Batch.Items = append(w.snapshot.Batch.Items, item)
	w.updatedAt = time.Now().UTC()
	return true
}

func (w *Workspace) completeBatch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshot.Batch.Complete = true
	w.updatedAt = time.Now().UTC()
}

// SetActive records which workflow receives voice transcripts.
func (w *Workspace) SetActive(kind capability.Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = kind
}

func (w *Workspace) Active() capability.Kind {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// AppendDraft adds dictated text to the pending input of a workflow.
func (w *Workspace) AppendDraft(kind capability.Kind, text string) string {
	text = strings.TrimSpace(text)

	w.mu.Lock()
	defer w.mu.Unlock()
	current := w.drafts[kind]
	switch {
	case text == "":
	case current == "":
		current = text
	default:
		current = current + " " + text
	}
	w.drafts[kind] = current
	return current
}

func (w *Workspace) Draft(kind capability.Kind) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.drafts[kind]
}

func (w *Workspace) Drafts() map[capability.Kind]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[capability.Kind]string, len(w.drafts))
	for k, v := range w.drafts {
		out[k] = v
	}
	return out
}

func (w *Workspace) ClearDraft(kind capability.Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.drafts, kind)
}

// ConsumeDraft removes used from the start of the draft. Text dictated after
// used was read is kept.
func (w *Workspace) ConsumeDraft(kind capability.Kind, used string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	current := w.drafts[kind]
	if !strings.HasPrefix(current, used) {
		return
	}
	rest := strings.TrimSpace(strings.TrimPrefix(current, used))
	if rest == "" {
		delete(w.drafts, kind)
		return
	}
	w.drafts[kind] = rest
}

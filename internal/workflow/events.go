package workflow

import (
	"sync"
	"time"

	"horse.fit/aidesk/internal/capability"
)

type EventType string

const (
	EventTypeProgress   EventType = "progress"
	EventTypeNotice     EventType = "notice"
	EventTypeBatchItem  EventType = "batch_item"
	EventTypeTranscript EventType = "transcript"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short user-facing message about an execution outcome.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// BatchItemEvent reports one finished batch item.
type BatchItemEvent struct {
	Index     int `json:"index"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Event is published on the hub for every observable change.
type Event struct {
	Type     EventType       `json:"type"`
	Kind     capability.Kind `json:"kind,omitempty"`
	State    State           `json:"state,omitempty"`
	Progress int             `json:"progress"`
	Notice   *Notice         `json:"notice,omitempty"`
	Batch    *BatchItemEvent `json:"batch,omitempty"`
	Text     string          `json:"text,omitempty"`
	At       time.Time       `json:"at"`
}

// Hub fans events out to subscribers. Slow subscribers drop events instead of
// blocking the workflow.
type Hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a buffered listener. The returned func unsubscribes and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

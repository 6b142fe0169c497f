// Package voice routes dictated speech into workflow inputs and reads results
// back as audio.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/workflow"
)

var (
	ErrVoiceUnavailable = errors.New("voice input is not available")
	ErrAlreadyListening = errors.New("a listening session is already active")
	ErrNotListening     = errors.New("no listening session is active")
	ErrEmptySpeech      = errors.New("text to speak is empty")
)

// Recognizer turns recorded audio into text.
type Recognizer interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

type Audio struct {
	Content  []byte
	MIMEType string
}

// Bridge owns the single system-wide listening session. Transcripts are appended
// to the draft input of the workflow that was active when listening started.
type Bridge struct {
	recognizer  Recognizer
	synthesizer Synthesizer
	workspace   *workflow.Workspace
	hub         *workflow.Hub
	logger      zerolog.Logger

	mu        sync.Mutex
	listening bool
	sessionID string
	target    capability.Kind
}

func NewBridge(recognizer Recognizer, synthesizer Synthesizer, workspace *workflow.Workspace, hub *workflow.Hub, logger zerolog.Logger) *Bridge {
	return &Bridge{
		recognizer:  recognizer,
		synthesizer: synthesizer,
		workspace:   workspace,
		hub:         hub,
		logger:      logger,
	}
}

// Status reports what the bridge can do and where transcripts go.
type Status struct {
	RecognitionAvailable bool            `json:"recognition_available"`
	SynthesisAvailable   bool            `json:"synthesis_available"`
	Listening            bool            `json:"listening"`
	SessionID            string          `json:"session_id,omitempty"`
	Target               capability.Kind `json:"target,omitempty"`
	Active               capability.Kind `json:"active"`
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	status := Status{
		RecognitionAvailable: b.recognizer != nil,
		SynthesisAvailable:   b.synthesizer != nil,
		Listening:            b.listening,
		Active:               b.workspace.Active(),
	}
	if b.listening {
		status.SessionID = b.sessionID
		status.Target = b.target
	}
	return status
}

// SetActive switches the workflow that receives the next listening session.
// A session already in progress keeps its target.
func (b *Bridge) SetActive(kind capability.Kind) {
	b.workspace.SetActive(kind)
}

// Start opens the listening session for target, or for the active workflow
// when target is empty.
func (b *Bridge) Start(target capability.Kind) (capability.Kind, error) {
	if b.recognizer == nil {
		return "", ErrVoiceUnavailable
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listening {
		return "", ErrAlreadyListening
	}
	if target == "" {
		target = b.workspace.Active()
	} else {
		b.workspace.SetActive(target)
	}
	b.listening = true
	b.sessionID = uuid.NewString()
	b.target = target

	b.logger.Info().Str("session_id", b.sessionID).Str("target", string(target)).Msg("voice listening started")
	return target, nil
}

// Stop ends the listening session. Stopping when idle is a no-op.
func (b *Bridge) Stop() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.listening {
		return false
	}
	b.listening = false
	b.logger.Info().Str("session_id", b.sessionID).Str("target", string(b.target)).Msg("voice listening stopped")
	b.sessionID = ""
	b.target = ""
	return true
}

// Submit transcribes one recorded chunk and appends it to the target draft.
// It returns the updated draft.
func (b *Bridge) Submit(ctx context.Context, audio io.Reader, filename string) (string, error) {
	b.mu.Lock()
	listening, target := b.listening, b.target
	b.mu.Unlock()
	if !listening {
		return "", ErrNotListening
	}

	text, err := b.recognizer.Transcribe(ctx, audio, filename)
	if err != nil {
		b.logger.Warn().Err(err).Str("target", string(target)).Msg("transcription failed")
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	text = strings.TrimSpace(text)

	draft := b.workspace.AppendDraft(target, text)
	if text != "" {
		b.hub.Publish(workflow.Event{Type: workflow.EventTypeTranscript, Kind: target, Text: text})
	}
	return draft, nil
}

func (b *Bridge) Speak(ctx context.Context, text string) (Audio, error) {
	if b.synthesizer == nil {
		return Audio{}, ErrVoiceUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Audio{}, ErrEmptySpeech
	}
	audio, err := b.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return Audio{}, fmt.Errorf("synthesize speech: %w", err)
	}
	return audio, nil
}

package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/voice"
)

const maxAudioBytes = 25 << 20

type voiceActiveRequest struct {
	Kind string `json:"kind"`
}

type voiceListenRequest struct {
	Target string `json:"target"`
}

type voiceSpeakRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleVoiceStatus(c echo.Context) error {
	if s.deps.Voice == nil {
		return voiceFailure(c, voice.ErrVoiceUnavailable)
	}
	return success(c, s.deps.Voice.Status())
}

func (s *Server) handleVoiceActive(c echo.Context) error {
	if s.deps.Voice == nil {
		return voiceFailure(c, voice.ErrVoiceUnavailable)
	}

	var req voiceActiveRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	kind, err := capability.ParseKind(req.Kind)
	if err != nil {
		return failValidation(c, map[string]string{"kind": err.Error()})
	}

	s.deps.Voice.SetActive(kind)
	return success(c, s.deps.Voice.Status())
}

func (s *Server) handleVoiceStart(c echo.Context) error {
	if s.deps.Voice == nil {
		return voiceFailure(c, voice.ErrVoiceUnavailable)
	}

	var req voiceListenRequest
	if c.Request().ContentLength > 0 {
		if err := decodeJSONBody(c, &req); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
	}

	var target capability.Kind
	if strings.TrimSpace(req.Target) != "" {
		kind, err := capability.ParseKind(req.Target)
		if err != nil {
			return failValidation(c, map[string]string{"target": err.Error()})
		}
		target = kind
	}

	if _, err := s.deps.Voice.Start(target); err != nil {
		return voiceFailure(c, err)
	}
	return successWithStatus(c, http.StatusCreated, s.deps.Voice.Status())
}

func (s *Server) handleVoiceStop(c echo.Context) error {
	if s.deps.Voice == nil {
		return voiceFailure(c, voice.ErrVoiceUnavailable)
	}
	stopped := s.deps.Voice.Stop()
	return success(c, map[string]any{
		"stopped": stopped,
		"status":  s.deps.Voice.Status(),
	})
}

// handleVoiceAudio accepts either a multipart "audio" file or a raw audio body.
func (s *Server) handleVoiceAudio(c echo.Context) error {
	if s.deps.Voice == nil {
		return voiceFailure(c, voice.ErrVoiceUnavailable)
	}

	var (
		audio    io.Reader
		filename = "speech.webm"
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("audio")
		if err != nil {
			return failValidation(c, map[string]string{"audio": "file is required"})
		}
		file, err := fh.Open()
		if err != nil {
			return failValidation(c, map[string]string{"audio": "file could not be read"})
		}
		defer file.Close()
		audio = file
		if fh.Filename != "" {
			filename = fh.Filename
		}
	} else {
		if c.Request().ContentLength == 0 {
			return failValidation(c, map[string]string{"audio": "body is required"})
		}
		audio = io.LimitReader(c.Request().Body, maxAudioBytes)
	}

	draft, err := s.deps.Voice.Submit(c.Request().Context(), audio, filename)
	if err != nil {
		return voiceFailure(c, err)
	}
	status := s.deps.Voice.Status()
	return success(c, map[string]any{
		"draft":  draft,
		"target": status.Target,
	})
}

func (s *Server) handleVoiceSpeak(c echo.Context) error {
	if s.deps.Voice == nil {
		return voiceFailure(c, voice.ErrVoiceUnavailable)
	}

	var req voiceSpeakRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	audio, err := s.deps.Voice.Speak(c.Request().Context(), req.Text)
	if err != nil {
		return voiceFailure(c, err)
	}
	return c.Blob(http.StatusOK, audio.MIMEType, audio.Content)
}

func voiceFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, voice.ErrVoiceUnavailable):
		return fail(c, http.StatusServiceUnavailable, "Voice input is not supported in this deployment", nil)
	case errors.Is(err, voice.ErrAlreadyListening):
		return fail(c, http.StatusConflict, "A listening session is already active", nil)
	case errors.Is(err, voice.ErrNotListening):
		return fail(c, http.StatusConflict, "Start listening before sending audio", nil)
	case errors.Is(err, voice.ErrEmptySpeech):
		return failValidation(c, map[string]string{"text": "is required"})
	default:
		return internalError(c, "Voice processing failed. Please try again.")
	}
}

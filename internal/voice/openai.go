package voice

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type Settings struct {
	Endpoint string
	APIKey   string
	STTModel string
	TTSModel string
	Voice    string
}

// OpenAIVoice implements Recognizer with the transcription endpoint and
// Synthesizer with the speech endpoint of an OpenAI-compatible API.
type OpenAIVoice struct {
	client   *openai.Client
	sttModel string
	ttsModel string
	voice    string
}

func NewOpenAIVoice(settings Settings) *OpenAIVoice {
	cfg := openai.DefaultConfig(strings.TrimSpace(settings.APIKey))
	if endpoint := strings.TrimRight(strings.TrimSpace(settings.Endpoint), "/"); endpoint != "" {
		cfg.BaseURL = endpoint
	}

	v := &OpenAIVoice{
		client:   openai.NewClientWithConfig(cfg),
		sttModel: strings.TrimSpace(settings.STTModel),
		ttsModel: strings.TrimSpace(settings.TTSModel),
		voice:    strings.TrimSpace(settings.Voice),
	}
	if v.sttModel == "" {
		v.sttModel = openai.Whisper1
	}
	if v.ttsModel == "" {
		v.ttsModel = string(openai.TTSModel1)
	}
	if v.voice == "" {
		v.voice = string(openai.VoiceAlloy)
	}
	return v
}

func (v *OpenAIVoice) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		filename = "speech.webm"
	}
	resp, err := v.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    v.sttModel,
		FilePath: filename,
		Reader:   audio,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (v *OpenAIVoice) Synthesize(ctx context.Context, text string) (Audio, error) {
	resp, err := v.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(v.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(v.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return Audio{}, err
	}
	defer resp.Close()

	content, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, fmt.Errorf("read speech audio: %w", err)
	}
	return Audio{Content: content, MIMEType: "audio/mpeg"}, nil
}

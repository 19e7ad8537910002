// Package speech synthesizes translated text into audio, once per target
// language per segment.
package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Synthesizer converts text to encoded audio bytes. A failure degrades only
// the audio delivery for its language; text delivery is unaffected.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

type OpenAI struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

func NewOpenAI(apiKey, model, voice string) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model, voice)
}

func NewOpenAIWithConfig(config openai.ClientConfig, model, voice string) *OpenAI {
	if strings.TrimSpace(model) == "" {
		model = string(openai.TTSModel1)
	}
	if strings.TrimSpace(voice) == "" {
		voice = string(openai.VoiceAlloy)
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  openai.SpeechModel(model),
		voice:  openai.SpeechVoice(voice),
	}
}

// Synthesize returns MP3 bytes for the given text. The language parameter is
// informational only: OpenAI voices are multilingual, so the text itself
// selects the spoken language.
func (s *OpenAI) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech for %s: %w", language, err)
	}
	defer func() { _ = resp.Close() }()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio for %s: %w", language, err)
	}

	return audio, nil
}

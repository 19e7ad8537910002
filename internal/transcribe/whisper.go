package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Whisper is the OpenAI fallback transcriber, used when no Deepgram key is
// configured so a single OpenAI key can run the whole pipeline.
type Whisper struct {
	client *openai.Client
	model  string
}

func NewWhisper(apiKey, model string) *Whisper {
	return NewWhisperWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewWhisperWithConfig(config openai.ClientConfig, model string) *Whisper {
	if strings.TrimSpace(model) == "" {
		model = openai.Whisper1
	}

	return &Whisper{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "segment.webm",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

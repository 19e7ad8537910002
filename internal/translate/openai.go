// Package translate renders transcribed text into a listener's language.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Translator translates text into one target language per call. Calls fail
// independently; the pipeline isolates a failure to that language's job.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

type OpenAI struct {
	client *openai.Client
	model  string
	sleep  func(time.Duration)
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewOpenAIWithConfig(config openai.ClientConfig, model string) *OpenAI {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
		sleep:  time.Sleep,
	}
}

func (t *OpenAI) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"You are a professional simultaneous interpreter. Translate the user's text into %s. Reply with the translation only, no explanations or quotes.",
					targetLanguage,
				),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	}

	backoff := []time.Duration{500 * time.Millisecond, 2 * time.Second}
	var lastErr error
	for attempt := 0; attempt <= len(backoff); attempt++ {
		resp, err := t.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("translate to %s: empty completion", targetLanguage)
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < len(backoff) {
			t.sleep(backoff[attempt])
		}
	}

	return "", fmt.Errorf("translate to %s failed after retries: %w", targetLanguage, lastErr)
}

package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// OpenAISummarizer classifies text with an OpenAI chat model in JSON mode
type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// NewOpenAISummarizer creates the summarizer. Model defaults to gpt-4o-mini.
func NewOpenAISummarizer(apiKey, model string, timeout time.Duration, log *logger.Logger) *OpenAISummarizer {
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAISummarizer{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		logger:  log.Named("openai-summarizer"),
	}
}

// Summarize sends the text to the chat completions API and parses the
// structured JSON answer
func (s *OpenAISummarizer) Summarize(ctx context.Context, text string) (*Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: classifyPrompt + text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	var result Classification
	raw := stripJSONFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	s.logger.Debug("Classified text",
		String("category", result.Category),
		String("title", result.Title))
	return &result, nil
}

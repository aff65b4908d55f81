package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// GeminiSummarizer classifies text with a Gemini model, forcing a JSON
// response through the generation config
type GeminiSummarizer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// NewGeminiSummarizer creates the summarizer. Model defaults to
// gemini-2.0-flash.
func NewGeminiSummarizer(ctx context.Context, apiKey, model string, timeout time.Duration, log *logger.Logger) (*GeminiSummarizer, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiSummarizer{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  log.Named("gemini-summarizer"),
	}, nil
}

// Summarize sends the text to Gemini and parses the structured JSON answer
func (s *GeminiSummarizer) Summarize(ctx context.Context, text string) (*Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		genai.Text(classifyPrompt+text),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("generate content returned empty response")
	}

	var result Classification
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	s.logger.Debug("Classified text",
		String("category", result.Category),
		String("title", result.Title))
	return &result, nil
}

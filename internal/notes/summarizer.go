package notes

import (
	"context"
	"strings"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// Import the logger package's exported functions
var (
	String = logger.String
	Error  = logger.Error
)

// Classification is the structured output of summarizing a captured message
type Classification struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Summary  string   `json:"summary"`
	Title    string   `json:"title"`
}

// Summarizer classifies message text into a category, tags, a short title
// and a one-paragraph summary
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*Classification, error)
}

// stripJSONFences removes a markdown code fence wrapped around a JSON
// payload. Models occasionally fence their answer even in JSON mode.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// classifyPrompt instructs the model to answer in strict JSON. Categories
// are open-ended; the model picks a short Japanese or English noun phrase.
const classifyPrompt = `あなたはメモ整理アシスタントです。以下のテキストを分析し、JSON形式で回答してください。

出力形式:
{"title": "短いタイトル(30文字以内)", "category": "カテゴリ名(1語)", "tags": ["タグ1", "タグ2"], "summary": "1段落の要約"}

テキスト:
`

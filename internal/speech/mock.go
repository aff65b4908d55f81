package speech

import (
	"context"
	"time"
)

// MockEngine is a local placeholder used when no real engine is configured.
// It returns a canned transcript with a fixed confidence so the rest of the
// pipeline can be exercised without API credentials.
type MockEngine struct{}

// NewMockEngine creates the placeholder engine
func NewMockEngine() *MockEngine { return &MockEngine{} }

// Name implements Engine
func (e *MockEngine) Name() string { return "mock" }

// Priority implements Engine; always last in line
func (e *MockEngine) Priority() int { return 100 }

// Available implements Engine
func (e *MockEngine) Available() bool { return true }

// Transcribe implements Engine
func (e *MockEngine) Transcribe(_ context.Context, req *Request) (*TranscriptionResult, error) {
	start := time.Now()

	var transcript string
	switch {
	case len(req.Data) < 100*1024:
		transcript = "今日のメモです。後で整理します。"
	case len(req.Data) < 1024*1024:
		transcript = "会議の内容をまとめたボイスメモです。詳細は後ほど確認してください。"
	default:
		transcript = "長めの音声メモです。プロジェクトの進捗と次のアクションについて話しています。"
	}

	result := NewTranscriptionResult(transcript, 0.85, "ja-JP", e.Name(), "placeholder")
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

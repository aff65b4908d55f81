package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysakai/mindbridge/pkg/logger"
)

func newTestGoogleEngine(t *testing.T, serverURL string) *GoogleEngine {
	t.Helper()
	return NewGoogleEngine(GoogleEngineConfig{
		APIKey:                "test-key",
		Model:                 "latest_long",
		Language:              "ja-JP",
		BaseURL:               serverURL,
		TimeoutSeconds:        5,
		RetryMaxAttempts:      3,
		RetryInitialBackoffMs: 1,
		RetryMaxBackoffMs:     5,
	}, logger.NewNop())
}

func recognizeResponse(transcript string, confidence float64) string {
	resp := map[string]any{
		"results": []map[string]any{
			{
				"alternatives": []map[string]any{
					{"transcript": transcript, "confidence": confidence},
				},
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestGoogleEngineTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/speech:recognize", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body googleRecognizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MP3", body.Config.Encoding)
		assert.Equal(t, "ja-JP", body.Config.LanguageCode)
		assert.NotEmpty(t, body.Audio.Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(recognizeResponse("今日の会議のメモです", 0.94)))
	}))
	defer server.Close()

	engine := newTestGoogleEngine(t, server.URL)

	result, err := engine.Transcribe(context.Background(), &Request{
		Data:     []byte("fake audio bytes"),
		Filename: "memo.mp3",
		Format:   FormatMP3,
	})

	require.NoError(t, err)
	assert.Equal(t, "今日の会議のメモです", result.Transcript)
	assert.Equal(t, 0.94, result.Confidence)
	assert.Equal(t, ConfidenceHigh, result.ConfidenceLevel)
	assert.Equal(t, "google-rest", result.APIUsed)
}

func TestGoogleEngineRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(recognizeResponse("三回目で成功", 0.8)))
	}))
	defer server.Close()

	engine := newTestGoogleEngine(t, server.URL)

	result, err := engine.Transcribe(context.Background(), &Request{
		Data:   []byte("audio"),
		Format: FormatOGG,
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "三回目で成功", result.Transcript)
	assert.Equal(t, ConfidenceMedium, result.ConfidenceLevel)
}

func TestGoogleEngineExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	engine := newTestGoogleEngine(t, server.URL)

	_, err := engine.Transcribe(context.Background(), &Request{Data: []byte("audio"), Format: FormatMP3})

	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	engErr, ok := err.(*EngineError)
	require.True(t, ok)
	assert.Equal(t, ErrKindRetryable, engErr.Kind)
}

func TestGoogleEngineDoesNotRetryTerminalErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, ErrKindRateLimited},
		{"bad request", http.StatusBadRequest, ErrKindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			engine := newTestGoogleEngine(t, server.URL)

			_, err := engine.Transcribe(context.Background(), &Request{Data: []byte("audio"), Format: FormatMP3})

			require.Error(t, err)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "terminal errors must not be retried")

			engErr, ok := err.(*EngineError)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, engErr.Kind)
		})
	}
}

func TestGoogleEngineNoSpeechDetected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	engine := newTestGoogleEngine(t, server.URL)

	_, err := engine.Transcribe(context.Background(), &Request{Data: []byte("audio"), Format: FormatMP3})

	require.Error(t, err)
	engErr, ok := err.(*EngineError)
	require.True(t, ok)
	assert.Equal(t, ErrKindBadRequest, engErr.Kind)
}

func TestGoogleEngineAvailability(t *testing.T) {
	engine := NewGoogleEngine(GoogleEngineConfig{APIKey: "k"}, logger.NewNop())
	assert.True(t, engine.Available())

	empty := NewGoogleEngine(GoogleEngineConfig{}, logger.NewNop())
	assert.False(t, empty.Available())
}

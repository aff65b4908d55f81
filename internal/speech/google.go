package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// DefaultGoogleBase is the default Speech-to-Text API endpoint
const DefaultGoogleBase = "https://speech.googleapis.com"

// GoogleEngine transcribes audio via the Google Speech-to-Text REST API.
// Retries are confined to this engine: up to RetryMaxAttempts attempts with
// exponential backoff, retrying only retryable faults. 429 and 400 fail
// immediately.
type GoogleEngine struct {
	apiKey         string
	model          string
	language       string
	baseURL        string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	httpClient     *http.Client
	logger         *logger.Logger
}

// GoogleEngineConfig configures the REST engine
type GoogleEngineConfig struct {
	APIKey                string
	Model                 string
	Language              string
	BaseURL               string // empty means DefaultGoogleBase
	TimeoutSeconds        int
	RetryMaxAttempts      int
	RetryInitialBackoffMs int
	RetryMaxBackoffMs     int
}

// NewGoogleEngine creates a new REST transcription engine
func NewGoogleEngine(cfg GoogleEngineConfig, log *logger.Logger) *GoogleEngine {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultGoogleBase
	}

	maxAttempts := cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	initialBackoff := time.Duration(cfg.RetryInitialBackoffMs) * time.Millisecond
	if initialBackoff <= 0 {
		initialBackoff = 2 * time.Second
	}
	maxBackoff := time.Duration(cfg.RetryMaxBackoffMs) * time.Millisecond
	if maxBackoff <= 0 {
		maxBackoff = 10 * time.Second
	}

	return &GoogleEngine{
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		language:       cfg.Language,
		baseURL:        base,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         log.Named("google-stt"),
	}
}

// Name implements Engine
func (e *GoogleEngine) Name() string { return "google-rest" }

// Priority implements Engine; the REST engine is the primary strategy
func (e *GoogleEngine) Priority() int { return 10 }

// Available implements Engine
func (e *GoogleEngine) Available() bool { return e.apiKey != "" }

type googleRecognizeRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  googleRecognitionAudio  `json:"audio"`
}

type googleRecognitionConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	EnableWordConfidence       bool   `json:"enableWordConfidence,omitempty"`
	Model                      string `json:"model,omitempty"`
}

type googleRecognitionAudio struct {
	Content string `json:"content"` // Base64 encoded
}

type googleRecognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Transcribe implements Engine. Classified API failures come back as
// *EngineError so the processor can distinguish them from internal faults.
func (e *GoogleEngine) Transcribe(ctx context.Context, req *Request) (*TranscriptionResult, error) {
	start := time.Now()

	sampleRate := req.SampleRateHz
	if sampleRate <= 0 {
		sampleRate = req.Format.SampleRateHint()
	}
	language := req.LanguageCode
	if language == "" {
		language = e.language
	}

	body := googleRecognizeRequest{
		Config: googleRecognitionConfig{
			Encoding:                   req.Format.RESTEncoding(),
			SampleRateHertz:            sampleRate,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
			EnableWordConfidence:       true,
			Model:                      e.model,
		},
		Audio: googleRecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(req.Data),
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recognize request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/v1/speech:recognize?key=%s", e.baseURL, e.apiKey)

	var lastErr *EngineError
	backoff := e.initialBackoff

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			e.logger.Info("Retrying speech recognition",
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", e.maxAttempts),
				logger.String("backoff", backoff.String()))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > e.maxBackoff {
				backoff = e.maxBackoff
			}
		}

		result, engErr := e.doRequest(ctx, apiURL, jsonData, req, start)
		if engErr == nil {
			return result, nil
		}

		lastErr = engErr
		if !engErr.Retryable() {
			e.logger.Warn("Non-retryable speech API error",
				logger.String("kind", engErr.Kind.String()),
				logger.Int("status_code", engErr.StatusCode))
			return nil, engErr
		}

		e.logger.Warn("Speech API request failed, may retry",
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", e.maxAttempts),
			logger.Int("status_code", engErr.StatusCode),
			logger.String("error", engErr.Message))
	}

	e.logger.Error("All speech recognition attempts failed",
		logger.Int("max_attempts", e.maxAttempts),
		logger.Error(lastErr))
	return nil, lastErr
}

// doRequest performs one HTTP attempt and classifies the outcome
func (e *GoogleEngine) doRequest(ctx context.Context, apiURL string, jsonData []byte, req *Request, start time.Time) (*TranscriptionResult, *EngineError) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &EngineError{Kind: ErrKindFatal, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		// Transport faults (connection reset, timeout) are worth a retry
		return nil, &EngineError{Kind: ErrKindRetryable, Message: err.Error()}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EngineError{Kind: ErrKindRetryable, Message: fmt.Sprintf("failed to read response body: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		kind := ClassifyStatus(resp.StatusCode)
		msg := string(bodyBytes)
		var apiResp googleRecognizeResponse
		if json.Unmarshal(bodyBytes, &apiResp) == nil && apiResp.Error != nil {
			msg = apiResp.Error.Message
		}
		return nil, &EngineError{Kind: kind, StatusCode: resp.StatusCode, Message: msg}
	}

	var apiResp googleRecognizeResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, &EngineError{Kind: ErrKindRetryable, Message: fmt.Sprintf("failed to parse response: %v", err)}
	}
	if apiResp.Error != nil {
		kind := ClassifyStatus(apiResp.Error.Code)
		return nil, &EngineError{Kind: kind, StatusCode: apiResp.Error.Code, Message: apiResp.Error.Message}
	}

	if len(apiResp.Results) == 0 || len(apiResp.Results[0].Alternatives) == 0 {
		return nil, &EngineError{Kind: ErrKindBadRequest, Message: "no speech detected in audio"}
	}

	alternatives := apiResp.Results[0].Alternatives
	best := alternatives[0]

	transcript := strings.TrimSpace(best.Transcript)
	if transcript == "" {
		return nil, &EngineError{Kind: ErrKindBadRequest, Message: "empty transcript returned"}
	}

	result := NewTranscriptionResult(transcript, best.Confidence, e.language, e.Name(), e.model)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	for _, w := range best.Words {
		result.Words = append(result.Words, WordDetail{Word: w.Word, Confidence: w.Confidence})
	}
	for _, alt := range alternatives[1:] {
		result.Alternatives = append(result.Alternatives, strings.TrimSpace(alt.Transcript))
	}

	e.logger.Info("Transcription successful",
		logger.Float64("confidence", best.Confidence),
		logger.Int("transcript_length", len(transcript)),
		logger.Int64("processing_time_ms", result.ProcessingTimeMs))

	return result, nil
}

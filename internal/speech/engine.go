package speech

import (
	"context"
	"fmt"
	"sort"
)

// ErrorKind classifies an engine failure for the retry policy
type ErrorKind int

const (
	// ErrKindRetryable covers server 5xx and transport faults
	ErrKindRetryable ErrorKind = iota
	// ErrKindRateLimited is HTTP 429; never retried
	ErrKindRateLimited
	// ErrKindBadRequest is HTTP 400; never retried
	ErrKindBadRequest
	// ErrKindFatal is an internal fault unrelated to the API call
	ErrKindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindRetryable:
		return "retryable"
	case ErrKindRateLimited:
		return "rate_limited"
	case ErrKindBadRequest:
		return "bad_request"
	default:
		return "fatal"
	}
}

// EngineError is a classified transcription engine failure
type EngineError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *EngineError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the retry loop may try again
func (e *EngineError) Retryable() bool {
	return e.Kind == ErrKindRetryable
}

// ClassifyStatus maps an HTTP status code to an ErrorKind. 429 and 400 are
// terminal; everything else unexpected is worth another attempt.
func ClassifyStatus(code int) ErrorKind {
	switch {
	case code == 429:
		return ErrKindRateLimited
	case code == 400:
		return ErrKindBadRequest
	default:
		return ErrKindRetryable
	}
}

// Request carries one audio buffer through an engine
type Request struct {
	Data         []byte
	Filename     string
	Format       AudioFormat
	SampleRateHz int    // 0 means use the format hint
	LanguageCode string // empty means use the engine default
}

// Engine converts audio bytes to text via some backend
type Engine interface {
	// Name identifies the engine in logs and results
	Name() string
	// Priority orders engines; lower runs first
	Priority() int
	// Available reports whether the engine can currently serve requests
	Available() bool
	// Transcribe runs one transcription. Classified API failures are
	// returned as *EngineError; anything else is an internal fault.
	Transcribe(ctx context.Context, req *Request) (*TranscriptionResult, error)
}

// OrderEngines returns the engines sorted by ascending priority
func OrderEngines(engines []Engine) []Engine {
	out := make([]Engine, len(engines))
	copy(out, engines)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

// SelectEngine picks the first available engine in priority order,
// or nil when none can serve
func SelectEngine(engines []Engine) Engine {
	for _, e := range engines {
		if e.Available() {
			return e
		}
	}
	return nil
}

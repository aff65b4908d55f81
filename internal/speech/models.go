package speech

import (
	"path/filepath"
	"strings"
	"time"
)

// AudioFormat identifies a supported audio container format
type AudioFormat string

const (
	FormatMP3         AudioFormat = "mp3"
	FormatWAV         AudioFormat = "wav"
	FormatFLAC        AudioFormat = "flac"
	FormatOGG         AudioFormat = "ogg"
	FormatM4A         AudioFormat = "m4a"
	FormatWEBM        AudioFormat = "webm"
	FormatUnsupported AudioFormat = "unsupported"
)

// DetectFormat maps a filename extension to an AudioFormat
func DetectFormat(filename string) AudioFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp3":
		return FormatMP3
	case ".wav":
		return FormatWAV
	case ".flac":
		return FormatFLAC
	case ".ogg", ".oga":
		return FormatOGG
	case ".m4a":
		return FormatM4A
	case ".webm":
		return FormatWEBM
	default:
		return FormatUnsupported
	}
}

// RESTEncoding returns the encoding name the speech REST API expects for
// this format. M4A is typically AAC but is mapped to MP3 for the REST path.
// Unmapped formats default to LINEAR16.
func (f AudioFormat) RESTEncoding() string {
	switch f {
	case FormatMP3:
		return "MP3"
	case FormatWAV:
		return "LINEAR16"
	case FormatFLAC:
		return "FLAC"
	case FormatOGG:
		return "OGG_OPUS"
	case FormatM4A:
		return "MP3"
	case FormatWEBM:
		return "WEBM_OPUS"
	default:
		return "LINEAR16"
	}
}

// SampleRateHint returns the sample rate to declare for this format when the
// real rate is unknown
func (f AudioFormat) SampleRateHint() int {
	switch f {
	case FormatWAV:
		return 16000
	case FormatOGG, FormatWEBM:
		return 48000
	default:
		return 44100
	}
}

// ConfidenceLevel is a coarse bucket derived from a continuous confidence score
type ConfidenceLevel string

const (
	ConfidenceHigh    ConfidenceLevel = "high"
	ConfidenceMedium  ConfidenceLevel = "medium"
	ConfidenceLow     ConfidenceLevel = "low"
	ConfidenceVeryLow ConfidenceLevel = "very_low"
)

// ConfidenceLevelFor derives the bucket for a confidence score. Boundaries
// are inclusive on the lower bound: 0.9 is high, 0.7 is medium, 0.5 is low.
func ConfidenceLevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.9:
		return ConfidenceHigh
	case confidence >= 0.7:
		return ConfidenceMedium
	case confidence >= 0.5:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// WordDetail is per-word detail returned by some backends
type WordDetail struct {
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence,omitempty"`
	StartSecs  float64 `json:"start_secs,omitempty"`
	EndSecs    float64 `json:"end_secs,omitempty"`
}

// TranscriptionResult is the outcome of one engine invocation
type TranscriptionResult struct {
	Transcript           string          `json:"transcript"`
	Confidence           float64         `json:"confidence"`
	ConfidenceLevel      ConfidenceLevel `json:"confidence_level"`
	LanguageCode         string          `json:"language_code,omitempty"`
	Words                []WordDetail    `json:"words,omitempty"`
	Alternatives         []string        `json:"alternatives,omitempty"`
	ProcessingTimeMs     int64           `json:"processing_time_ms"`
	AudioDurationSeconds float64         `json:"audio_duration_seconds,omitempty"`
	APIUsed              string          `json:"api_used,omitempty"`
	ModelUsed            string          `json:"model_used,omitempty"`
}

// NewTranscriptionResult builds a TranscriptionResult, deriving the
// confidence level from the score
func NewTranscriptionResult(transcript string, confidence float64, languageCode, apiUsed, modelUsed string) *TranscriptionResult {
	return &TranscriptionResult{
		Transcript:      transcript,
		Confidence:      confidence,
		ConfidenceLevel: ConfidenceLevelFor(confidence),
		LanguageCode:    languageCode,
		APIUsed:         apiUsed,
		ModelUsed:       modelUsed,
	}
}

// AudioProcessingResult is the outcome of processing one attachment
type AudioProcessingResult struct {
	Success          bool                 `json:"success"`
	Transcription    *TranscriptionResult `json:"transcription,omitempty"`
	ErrorMessage     string               `json:"error_message,omitempty"`
	OriginalFilename string               `json:"original_filename"`
	FileSizeBytes    int                  `json:"file_size_bytes"`
	AudioFormat      AudioFormat          `json:"audio_format"`
	DurationSeconds  float64              `json:"duration_seconds,omitempty"`
	ProcessedAt      time.Time            `json:"processed_at"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
	APIUsageMinutes  float64              `json:"api_usage_minutes,omitempty"`
	FallbackUsed     bool                 `json:"fallback_used"`
	FallbackReason   string               `json:"fallback_reason,omitempty"`
	SavedFilePath    string               `json:"saved_file_path,omitempty"`
}

const (
	minEstimateSecs = 1.0
	maxEstimateSecs = 600.0
)

// EstimateDurationSeconds estimates audio duration from file size alone.
// Compressed lossy formats run about a minute per megabyte, WAV about six
// seconds per megabyte. This is a quota estimate, not a decode.
func EstimateDurationSeconds(sizeBytes int, format AudioFormat) float64 {
	sizeMB := float64(sizeBytes) / (1024 * 1024)

	var estimate float64
	switch format {
	case FormatMP3, FormatOGG, FormatM4A, FormatWEBM:
		estimate = sizeMB * 60
	case FormatWAV:
		estimate = sizeMB * 6
	default:
		estimate = sizeMB * 2
	}

	if estimate < minEstimateSecs {
		return minEstimateSecs
	}
	if estimate > maxEstimateSecs {
		return maxEstimateSecs
	}
	return estimate
}

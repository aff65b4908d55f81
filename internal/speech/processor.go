package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// Import the logger package's exported functions
var (
	String  = logger.String
	Int     = logger.Int
	Int64   = logger.Int64
	Float64 = logger.Float64
	Error   = logger.Error
)

// FileSaver persists raw audio bytes for the fallback path and returns the
// saved path
type FileSaver interface {
	SaveAudio(filename string, data []byte) (string, error)
}

// Processor runs the transcription pipeline: format detection, quality
// validation, quota check, engine invocation, usage accounting, and the
// save-to-vault fallback. It owns the UsageTracker exclusively.
type Processor struct {
	engines   []Engine
	usage     *UsageTracker
	validator *QualityValidator
	files     FileSaver
	logger    *logger.Logger
}

// NewProcessor creates a processor over the given engines, ordered by priority
func NewProcessor(engines []Engine, usage *UsageTracker, validator *QualityValidator, files FileSaver, log *logger.Logger) *Processor {
	return &Processor{
		engines:   OrderEngines(engines),
		usage:     usage,
		validator: validator,
		files:     files,
		logger:    log.Named("speech-processor"),
	}
}

// Usage returns the processor's quota tracker
func (p *Processor) Usage() *UsageTracker { return p.usage }

// ProcessAudioFile converts a raw audio buffer into a processing result.
// It never returns an error: every internal failure becomes a result with
// Success=false or a fallback result.
func (p *Processor) ProcessAudioFile(ctx context.Context, data []byte, filename, channelName string) *AudioProcessingResult {
	start := time.Now()

	result := &AudioProcessingResult{
		OriginalFilename: filename,
		FileSizeBytes:    len(data),
		ProcessedAt:      time.Now().UTC(),
	}

	// Step 1: format detection
	format := DetectFormat(filename)
	result.AudioFormat = format
	if format == FormatUnsupported {
		result.ErrorMessage = fmt.Sprintf("サポートされていない音声形式です: %s", filename)
		result.ProcessingTimeMs = 0
		p.logger.Warn("Unsupported audio format",
			String("filename", filename),
			String("channel", channelName))
		return result
	}

	// Step 2: quality validation (best-effort)
	if p.validator != nil {
		if err := p.validator.Validate(data, format); err != nil {
			result.ErrorMessage = UserFacingMessage(err)
			result.ProcessingTimeMs = time.Since(start).Milliseconds()
			p.logger.Warn("Audio rejected by quality validation",
				String("filename", filename),
				Error(err))
			return result
		}
	}

	// Step 3: quota check short-circuits to the fallback before any engine work
	if p.usage.IsLimitExceeded() {
		p.logger.Warn("Monthly API limit exceeded, saving audio instead",
			String("filename", filename),
			Float64("usage_percent", p.usage.UsagePercentage()))
		return p.fallback(data, filename, "API limit exceeded", result, start)
	}

	// Step 4: size-based duration estimate for quota accounting
	estimatedSecs := EstimateDurationSeconds(len(data), format)
	result.DurationSeconds = estimatedSecs

	// Step 5: engine selection
	engine := SelectEngine(p.engines)
	if engine == nil {
		p.logger.Warn("No transcription engine available",
			String("filename", filename))
		return p.fallback(data, filename, "API not available", result, start)
	}

	// Step 6: transcription + usage accounting
	p.logger.Info("Starting transcription",
		String("engine", engine.Name()),
		String("filename", filename),
		String("channel", channelName),
		Int("size_bytes", len(data)),
		Float64("estimated_duration_secs", estimatedSecs))

	transcription, err := engine.Transcribe(ctx, &Request{
		Data:     data,
		Filename: filename,
		Format:   format,
	})

	usageMinutes := estimatedSecs / 60
	if err != nil {
		p.usage.AddUsage(usageMinutes, false)

		if engErr, ok := err.(*EngineError); ok {
			// Classified API failure: surface a sanitized message in a
			// placeholder transcript rather than hitting the fallback path.
			msg := UserFacingMessage(engErr)
			result.ErrorMessage = msg
			result.Transcription = NewTranscriptionResult(msg, 0.0, "", engine.Name(), "")
			result.APIUsageMinutes = usageMinutes
			result.ProcessingTimeMs = time.Since(start).Milliseconds()
			p.logger.Error("Transcription failed",
				String("engine", engine.Name()),
				String("kind", engErr.Kind.String()),
				Int("status_code", engErr.StatusCode))
			return result
		}

		// Step 7: anything unexpected routes to the fallback path
		p.logger.Error("Unexpected transcription error",
			String("engine", engine.Name()),
			Error(err))
		return p.fallback(data, filename, fmt.Sprintf("Processing error: %v", err), result, start)
	}

	p.usage.AddUsage(usageMinutes, true)

	transcription.AudioDurationSeconds = estimatedSecs
	result.Success = true
	result.Transcription = transcription
	result.APIUsageMinutes = usageMinutes
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	p.logger.Info("Audio processing completed",
		String("filename", filename),
		Float64("confidence", transcription.Confidence),
		String("confidence_level", string(transcription.ConfidenceLevel)),
		Int64("processing_time_ms", result.ProcessingTimeMs))

	return result
}

// fallback persists the raw audio for manual processing and reports a
// fallback result. A save failure yields a plain error result instead.
func (p *Processor) fallback(data []byte, filename, reason string, result *AudioProcessingResult, start time.Time) *AudioProcessingResult {
	if p.files == nil {
		result.ErrorMessage = "音声ファイルを保存できませんでした"
		result.FallbackReason = reason
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}

	savedPath, err := p.files.SaveAudio(filename, data)
	if err != nil {
		p.logger.Error("Fallback file save failed",
			String("filename", filename),
			Error(err))
		result.ErrorMessage = "音声ファイルの保存に失敗しました"
		result.FallbackReason = reason
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}

	result.FallbackUsed = true
	result.FallbackReason = reason
	result.SavedFilePath = savedPath
	result.Transcription = NewTranscriptionResult(
		fmt.Sprintf("音声ファイルを保存しました: %s（理由: %s）", savedPath, reason),
		0.0, "", "fallback", "")
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	p.logger.Info("Audio saved via fallback path",
		String("filename", filename),
		String("saved_path", savedPath),
		String("reason", reason))

	return result
}

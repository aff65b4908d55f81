package speech

import (
	"errors"
	"fmt"

	"github.com/ysakai/mindbridge/internal/audio"
	"github.com/ysakai/mindbridge/pkg/logger"
)

// QualityThresholds bounds what audio is worth spending API quota on
type QualityThresholds struct {
	MinDurationSecs float64
	MaxDurationSecs float64
	MinLoudnessDBFS float64
	MinSampleRateHz int
}

// QualityValidator inspects decoded audio properties before transcription.
// Decoding is best-effort: when no decoder exists for the format, validation
// is skipped and the audio is treated as valid.
type QualityValidator struct {
	thresholds QualityThresholds
	logger     *logger.Logger
}

// NewQualityValidator creates a validator with the given thresholds
func NewQualityValidator(thresholds QualityThresholds, log *logger.Logger) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
		logger:     log.Named("quality"),
	}
}

// Validate returns nil when the audio is acceptable, or a human-readable
// error describing the rejection. Undecodable input passes.
func (v *QualityValidator) Validate(data []byte, format AudioFormat) error {
	info, err := audio.Inspect(data, string(format))
	if err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			v.logger.Debug("No decoder for format, skipping quality validation",
				logger.String("format", string(format)))
			return nil
		}
		// Decode failure on a supposedly decodable format: the download
		// layer already verified magic bytes, so treat this as best-effort
		// too rather than rejecting possibly-fine audio.
		v.logger.Warn("Audio decode failed, skipping quality validation",
			logger.String("format", string(format)),
			logger.Error(err))
		return nil
	}

	durationSecs := float64(info.DurationMs) / 1000

	if durationSecs < v.thresholds.MinDurationSecs {
		return fmt.Errorf("audio too short: %.2fs (minimum %.2fs)", durationSecs, v.thresholds.MinDurationSecs)
	}
	if durationSecs > v.thresholds.MaxDurationSecs {
		return fmt.Errorf("audio too long: %.0fs (maximum %.0fs)", durationSecs, v.thresholds.MaxDurationSecs)
	}
	if info.LoudnessDBFS < v.thresholds.MinLoudnessDBFS {
		return fmt.Errorf("audio nearly silent: %.1f dBFS (minimum %.1f dBFS)", info.LoudnessDBFS, v.thresholds.MinLoudnessDBFS)
	}
	if info.SampleRateHz < v.thresholds.MinSampleRateHz {
		return fmt.Errorf("sample rate too low: %d Hz (minimum %d Hz)", info.SampleRateHz, v.thresholds.MinSampleRateHz)
	}

	v.logger.Debug("Audio passed quality validation",
		logger.Float64("duration_secs", durationSecs),
		logger.Float64("loudness_dbfs", info.LoudnessDBFS),
		logger.Int("sample_rate_hz", info.SampleRateHz))

	return nil
}

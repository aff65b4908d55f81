package bot

import (
	"context"
	"time"

	"github.com/ysakai/mindbridge/internal/speech"
	"github.com/ysakai/mindbridge/internal/storage/sqlite"
	"github.com/ysakai/mindbridge/internal/websocket"
	"github.com/ysakai/mindbridge/pkg/logger"
)

// Recorder persists processing results to SQLite and pushes them to the
// WebSocket feed. Either side may be nil; the other still runs.
type Recorder struct {
	transcriptions *sqlite.TranscriptionStorage
	usage          *speech.UsageTracker
	wsServer       *websocket.Server
	logger         *logger.Logger
}

// NewRecorder creates the recorder
func NewRecorder(transcriptions *sqlite.TranscriptionStorage, usage *speech.UsageTracker, wsServer *websocket.Server, log *logger.Logger) *Recorder {
	return &Recorder{
		transcriptions: transcriptions,
		usage:          usage,
		wsServer:       wsServer,
		logger:         log.Named("recorder"),
	}
}

// Persist stores the result and broadcasts it to connected dashboards
func (r *Recorder) Persist(ctx context.Context, msg *MessageContext, result *speech.AudioProcessingResult) error {
	record := &sqlite.TranscriptionRecord{
		MessageID:        msg.ID,
		ChannelName:      msg.ChannelName,
		AuthorName:       msg.AuthorName,
		Filename:         result.OriginalFilename,
		CreatedAt:        time.Now().UTC(),
		Success:          result.Success,
		FallbackUsed:     result.FallbackUsed,
		SavedFilePath:    result.SavedFilePath,
		ProcessingTimeMs: result.ProcessingTimeMs,
		ErrorMessage:     result.ErrorMessage,
	}
	if t := result.Transcription; t != nil {
		record.Transcript = t.Transcript
		record.Confidence = t.Confidence
		record.ConfidenceLevel = string(t.ConfidenceLevel)
		record.APIUsed = t.APIUsed
	}

	if r.transcriptions != nil {
		if _, err := r.transcriptions.StoreTranscription(record); err != nil {
			return err
		}
	}

	if r.wsServer != nil {
		r.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeTranscription,
			Data: map[string]any{
				"message_id":       record.MessageID,
				"channel_name":     record.ChannelName,
				"filename":         record.Filename,
				"transcript":       record.Transcript,
				"confidence":       record.Confidence,
				"confidence_level": record.ConfidenceLevel,
				"success":          record.Success,
				"fallback_used":    record.FallbackUsed,
			},
		})

		if r.usage != nil {
			r.wsServer.Broadcast(&websocket.Message{
				Type: websocket.MessageTypeUsageUpdate,
				Data: map[string]any{
					"usage":            r.usage.Snapshot(),
					"usage_percentage": r.usage.UsagePercentage(),
					"limit_exceeded":   r.usage.IsLimitExceeded(),
				},
			})
		}
	}

	return nil
}

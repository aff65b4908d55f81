package bot

import (
	"context"
	"fmt"

	"github.com/ysakai/mindbridge/internal/speech"
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

// Notifier posts and edits user-facing feedback messages. Failures are
// logged and non-fatal.
type Notifier interface {
	// Reply posts a reply to the given message and returns the feedback
	// message ID for later edits
	Reply(ctx context.Context, channelID, messageID, content string) (string, error)
	// Edit rewrites a previously posted feedback message
	Edit(ctx context.Context, channelID, feedbackID, content string) error
}

// Transcriber is the speech pipeline as the handler sees it
type Transcriber interface {
	ProcessAudioFile(ctx context.Context, data []byte, filename, channelName string) *speech.AudioProcessingResult
}

// Fetcher retrieves attachment payloads. A nil return means the download was
// rejected or failed.
type Fetcher interface {
	Download(ctx context.Context, rawURL string) []byte
}

// ResultSink receives completed processing results for persistence and
// broadcast. Implementations must not panic; errors are logged by the caller.
type ResultSink interface {
	Persist(ctx context.Context, msg *MessageContext, result *speech.AudioProcessingResult) error
}

// NoteSink turns a fully processed message into a vault note
type NoteSink interface {
	CreateNote(ctx context.Context, msg *MessageContext) error
}

// AudioHandler orchestrates one gateway message: filtering, dedup, safe
// download, transcription, feedback updates, and handoff to note creation.
// Text-only messages skip the audio pipeline and go straight to the note
// sink. Attachments in a batch are processed sequentially and in isolation:
// a failure in one never aborts the rest.
type AudioHandler struct {
	deduper    *Deduper
	downloader Fetcher
	processor  Transcriber
	notifier   Notifier
	results    ResultSink
	notes      NoteSink
	logger     *logger.Logger
}

// NewAudioHandler wires the handler. results and notes may be nil.
func NewAudioHandler(deduper *Deduper, downloader Fetcher, processor Transcriber, notifier Notifier, results ResultSink, notes NoteSink, log *logger.Logger) *AudioHandler {
	return &AudioHandler{
		deduper:    deduper,
		downloader: downloader,
		processor:  processor,
		notifier:   notifier,
		results:    results,
		notes:      notes,
		logger:     log.Named("audio-handler"),
	}
}

// IsAudioAttachment reports whether an attachment looks like audio, by
// extension first and content type as a tiebreaker
func IsAudioAttachment(att Attachment) bool {
	if speech.DetectFormat(att.Filename) != speech.FormatUnsupported {
		return true
	}
	return len(att.ContentType) >= 6 && att.ContentType[:6] == "audio/"
}

// textBodyIdentity is the dedup slot for a message's text body, keeping a
// redelivered text memo from producing a second note
const textBodyIdentity = "text-body"

// HandleMessage processes every audio attachment on the message and then
// hands the enriched message to note creation. Messages without audio are
// captured as text notes.
func (h *AudioHandler) HandleMessage(ctx context.Context, msg *MessageContext) {
	audioAtts := make([]Attachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		if IsAudioAttachment(att) {
			audioAtts = append(audioAtts, att)
		}
	}
	if len(audioAtts) == 0 {
		h.handleTextOnly(ctx, msg)
		return
	}

	h.logger.Info("Processing audio attachments",
		String("message_id", msg.ID),
		String("channel", msg.ChannelName),
		Int("count", len(audioAtts)))

	batchSeen := make(map[string]bool)

	for _, att := range audioAtts {
		identity := AttachmentIdentity(att)

		// True duplicate within one event: skip outright
		if batchSeen[identity] {
			h.logger.Debug("Skipping duplicate attachment in batch",
				String("identity", identity))
			continue
		}
		batchSeen[identity] = true

		suppressStart := false
		if h.deduper.Seen(msg.ID, identity) {
			if msg.AudioTranscription != nil {
				// Already fully processed in a prior batch
				h.logger.Debug("Skipping already-transcribed attachment",
					String("message_id", msg.ID),
					String("identity", identity))
				continue
			}
			// Reprocess, but don't repeat the "starting" chat message
			suppressStart = true
		}

		// Mark before any awaited IO so a racing second delivery of the
		// same message sees the attachment as taken
		h.deduper.Mark(msg.ID, identity)

		h.processSingleAudioAttachment(ctx, msg, att, suppressStart)
	}

	h.createNote(ctx, msg)
}

// handleTextOnly captures a message with no audio as a plain text note
func (h *AudioHandler) handleTextOnly(ctx context.Context, msg *MessageContext) {
	if msg.Content == "" || h.notes == nil {
		return
	}
	if h.deduper.Seen(msg.ID, textBodyIdentity) {
		h.logger.Debug("Skipping already-captured text message",
			String("message_id", msg.ID))
		return
	}
	h.deduper.Mark(msg.ID, textBodyIdentity)

	h.createNote(ctx, msg)
}

func (h *AudioHandler) createNote(ctx context.Context, msg *MessageContext) {
	if h.notes == nil || (msg.AudioTranscription == nil && msg.Content == "") {
		return
	}
	if err := h.notes.CreateNote(ctx, msg); err != nil {
		h.logger.Error("Note creation failed",
			String("message_id", msg.ID),
			Error(err))
	}
}

// processSingleAudioAttachment runs one attachment through download and
// transcription, keeping all failures local to this attachment
func (h *AudioHandler) processSingleAudioAttachment(ctx context.Context, msg *MessageContext, att Attachment, suppressStart bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic while processing attachment",
				String("filename", att.Filename),
				String("panic", fmt.Sprint(r)))
		}
	}()

	var feedbackID string
	if !suppressStart {
		id, err := h.notifier.Reply(ctx, msg.ChannelID, msg.ID,
			fmt.Sprintf("🎤 「%s」を文字起こししています...", att.Filename))
		if err != nil {
			h.logger.Warn("Failed to post feedback message", Error(err))
		} else {
			feedbackID = id
		}
	}

	edit := func(content string) {
		if feedbackID == "" {
			return
		}
		if err := h.notifier.Edit(ctx, msg.ChannelID, feedbackID, content); err != nil {
			h.logger.Warn("Failed to edit feedback message", Error(err))
		}
	}

	data := h.downloader.Download(ctx, att.URL)
	if data == nil {
		edit(fmt.Sprintf("❌ 「%s」のダウンロードに失敗しました", att.Filename))
		return
	}

	result := h.processor.ProcessAudioFile(ctx, data, att.Filename, msg.ChannelName)

	switch {
	case result.Success && result.Transcription != nil:
		msg.SetTranscription(&TranscriptionData{
			Transcript:      result.Transcription.Transcript,
			Confidence:      result.Transcription.Confidence,
			ConfidenceLevel: string(result.Transcription.ConfidenceLevel),
		})
		edit(fmt.Sprintf("✅ 文字起こし完了（信頼度: %.0f%%）", result.Transcription.Confidence*100))

	case result.FallbackUsed:
		msg.SetTranscription(&TranscriptionData{
			Transcript:     "",
			FallbackUsed:   true,
			FallbackReason: result.FallbackReason,
			SavedFilePath:  result.SavedFilePath,
		})
		edit(fmt.Sprintf("⚠️ 文字起こしは利用できないため、音声ファイルを保存しました（%s）", result.FallbackReason))

	default:
		edit(fmt.Sprintf("❌ 文字起こしに失敗しました: %s", result.ErrorMessage))
	}

	if h.results != nil {
		if err := h.results.Persist(ctx, msg, result); err != nil {
			h.logger.Error("Failed to persist processing result",
				String("filename", att.Filename),
				Error(err))
		}
	}
}

package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/ysakai/mindbridge/internal/bot"
	"github.com/ysakai/mindbridge/internal/vault"
	"github.com/ysakai/mindbridge/internal/websocket"
	"github.com/ysakai/mindbridge/pkg/logger"
)

// Feed receives note lifecycle events for connected dashboards
type Feed interface {
	Broadcast(message *websocket.Message)
}

// Builder turns processed messages into vault notes. When a summarizer is
// configured it adds a title, category, tags and summary; when it is nil or
// fails, the note is still written without classification.
type Builder struct {
	store      *vault.Store
	summarizer Summarizer
	feed       Feed
	logger     *logger.Logger
}

// NewBuilder creates the note builder. summarizer and feed may be nil.
func NewBuilder(store *vault.Store, summarizer Summarizer, feed Feed, log *logger.Logger) *Builder {
	return &Builder{
		store:      store,
		summarizer: summarizer,
		feed:       feed,
		logger:     log.Named("note-builder"),
	}
}

// CreateNote writes one note for the message. Summarizer failures degrade
// to an unclassified note rather than dropping the capture.
func (b *Builder) CreateNote(ctx context.Context, msg *bot.MessageContext) error {
	body := b.noteBody(msg)
	if strings.TrimSpace(body) == "" {
		b.logger.Debug("Skipping note with empty body",
			String("message_id", msg.ID))
		return nil
	}

	meta := vault.NoteMeta{
		Title:  defaultTitle(msg),
		Date:   msg.Timestamp.Format("2006-01-02 15:04"),
		Source: fmt.Sprintf("discord/%s", msg.ChannelName),
	}

	if b.summarizer != nil {
		cls, err := b.summarizer.Summarize(ctx, body)
		if err != nil {
			b.logger.Warn("Summarizer failed, writing unclassified note",
				String("message_id", msg.ID),
				Error(err))
		} else {
			if cls.Title != "" {
				meta.Title = cls.Title
			}
			meta.Category = cls.Category
			meta.Tags = cls.Tags
			if cls.Summary != "" {
				body = fmt.Sprintf("> %s\n\n%s", cls.Summary, body)
			}
		}
	}

	path, err := b.store.SaveNote(meta, body)
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}

	b.logger.Info("Created note",
		String("message_id", msg.ID),
		String("path", path))

	if b.feed != nil {
		b.feed.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeNoteCreated,
			Data: map[string]any{
				"title":  meta.Title,
				"path":   path,
				"source": meta.Source,
			},
		})
	}
	return nil
}

// noteBody assembles the note text from the message content and any
// transcription block
func (b *Builder) noteBody(msg *bot.MessageContext) string {
	var sections []string

	if t := msg.AudioTranscription; t != nil {
		switch {
		case t.FallbackUsed:
			sections = append(sections, fmt.Sprintf(
				"音声ファイルを保存しました: [[%s]]\n理由: %s",
				t.SavedFilePath, t.FallbackReason))
		case t.Transcript != "":
			sections = append(sections, t.Transcript)
		}
	}

	// Avoid duplicating the transcript that backfilled Content
	if msg.Content != "" && (msg.AudioTranscription == nil || msg.Content != msg.AudioTranscription.Transcript) {
		sections = append(sections, msg.Content)
	}

	return strings.Join(sections, "\n\n")
}

func defaultTitle(msg *bot.MessageContext) string {
	text := strings.TrimSpace(msg.Content)
	if text == "" && msg.AudioTranscription != nil {
		text = strings.TrimSpace(msg.AudioTranscription.Transcript)
	}
	if text == "" {
		return fmt.Sprintf("メモ %s", msg.Timestamp.Format("2006-01-02 15:04"))
	}

	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		text = text[:idx]
	}
	runes := []rune(text)
	if len(runes) > 30 {
		return string(runes[:30])
	}
	return text
}

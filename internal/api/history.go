package api

import (
	"fmt"

	"github.com/ysakai/mindbridge/internal/storage/sqlite"
	"github.com/ysakai/mindbridge/internal/websocket"
	"github.com/ysakai/mindbridge/pkg/logger"
)

const defaultHistoryLimit = 50

// HistoryHandler answers dashboard history requests arriving over the
// WebSocket feed with recent transcriptions from storage.
type HistoryHandler struct {
	storage *sqlite.TranscriptionStorage
	logger  *logger.Logger
}

// NewHistoryHandler creates the handler. storage may be nil when persistence
// is disabled; requests are then answered with an empty history.
func NewHistoryHandler(storage *sqlite.TranscriptionStorage, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		storage: storage,
		logger:  log.Named("ws-history"),
	}
}

// HandleMessage implements websocket.MessageHandler. Message types other
// than history requests are ignored.
func (h *HistoryHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	if messageType != websocket.MessageTypeHistoryReq {
		return nil
	}

	msg, err := h.historyMessage(data)
	if err != nil {
		return err
	}
	if !client.SendMessage(msg) {
		h.logger.Warn("Dropped history reply, client send buffer full")
	}
	return nil
}

func (h *HistoryHandler) historyMessage(data map[string]any) (*websocket.Message, error) {
	limit := defaultHistoryLimit
	// JSON numbers arrive as float64
	if v, ok := data["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	records := []*sqlite.TranscriptionRecord{}
	if h.storage != nil {
		var err error
		records, err = h.storage.GetTranscriptions(limit, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to load transcription history: %w", err)
		}
	}

	return &websocket.Message{
		Type: websocket.MessageTypeHistory,
		Data: map[string]any{
			"count":          len(records),
			"transcriptions": records,
		},
	}, nil
}

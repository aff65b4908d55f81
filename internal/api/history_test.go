package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysakai/mindbridge/internal/storage/sqlite"
	"github.com/ysakai/mindbridge/internal/websocket"
	"github.com/ysakai/mindbridge/pkg/logger"
)

func newHistoryHandler(t *testing.T) (*HistoryHandler, *sqlite.TranscriptionStorage) {
	t.Helper()

	db, _, err := sqlite.Open(t.TempDir(), time.Now(), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage := sqlite.NewTranscriptionStorage(db, logger.NewNop())
	return NewHistoryHandler(storage, logger.NewNop()), storage
}

func TestHistoryMessage(t *testing.T) {
	h, storage := newHistoryHandler(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		_, err := storage.StoreTranscription(&sqlite.TranscriptionRecord{
			MessageID:   string(rune('a' + i)),
			ChannelName: "notes",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			Transcript:  "メモ",
			Success:     true,
		})
		require.NoError(t, err)
	}

	msg, err := h.historyMessage(map[string]any{"limit": float64(2)})
	require.NoError(t, err)

	assert.Equal(t, websocket.MessageTypeHistory, msg.Type)
	assert.Equal(t, 2, msg.Data["count"])

	records, ok := msg.Data["transcriptions"].([]*sqlite.TranscriptionRecord)
	require.True(t, ok)
	assert.Equal(t, "c", records[0].MessageID, "newest first")
}

func TestHistoryMessageDefaultLimit(t *testing.T) {
	h, _ := newHistoryHandler(t)

	msg, err := h.historyMessage(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 0, msg.Data["count"])
}

func TestHistoryMessageWithoutStorage(t *testing.T) {
	h := NewHistoryHandler(nil, logger.NewNop())

	msg, err := h.historyMessage(nil)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageTypeHistory, msg.Type)
	assert.Equal(t, 0, msg.Data["count"])
}

func TestHistoryHandlerIgnoresOtherTypes(t *testing.T) {
	h := NewHistoryHandler(nil, logger.NewNop())
	assert.NoError(t, h.HandleMessage(nil, websocket.MessageTypeTranscription, nil))
}

package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysakai/mindbridge/pkg/logger"
)

func testStorage(t *testing.T) *TranscriptionStorage {
	t.Helper()

	db, _, err := Open(t.TempDir(), time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewTranscriptionStorage(db, logger.NewNop())
}

func sampleRecord(messageID string, at time.Time) *TranscriptionRecord {
	return &TranscriptionRecord{
		MessageID:        messageID,
		ChannelName:      "notes",
		AuthorName:       "yuki",
		Filename:         "memo.ogg",
		CreatedAt:        at,
		Transcript:       "会議のメモ",
		Confidence:       0.94,
		ConfidenceLevel:  "high",
		Success:          true,
		APIUsed:          "google-rest",
		ProcessingTimeMs: 850,
	}
}

func TestStoreAndGetTranscriptions(t *testing.T) {
	s := testStorage(t)
	now := time.Now().UTC().Truncate(time.Second)

	id, err := s.StoreTranscription(sampleRecord("msg1", now))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	records, err := s.GetTranscriptions(10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "msg1", got.MessageID)
	assert.Equal(t, "会議のメモ", got.Transcript)
	assert.Equal(t, 0.94, got.Confidence)
	assert.Equal(t, "high", got.ConfidenceLevel)
	assert.True(t, got.Success)
	assert.Equal(t, now, got.CreatedAt)
}

func TestGetTranscriptionsOrderAndPagination(t *testing.T) {
	s := testStorage(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		_, err := s.StoreTranscription(sampleRecord(
			string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	records, err := s.GetTranscriptions(2, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "e", records[0].MessageID, "newest first")
	assert.Equal(t, "d", records[1].MessageID)

	page2, err := s.GetTranscriptions(2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "c", page2[0].MessageID)
}

func TestGetTranscriptionsByChannel(t *testing.T) {
	s := testStorage(t)
	now := time.Now().UTC().Truncate(time.Second)

	r1 := sampleRecord("msg1", now)
	r2 := sampleRecord("msg2", now.Add(time.Minute))
	r2.ChannelName = "other"

	_, err := s.StoreTranscription(r1)
	require.NoError(t, err)
	_, err = s.StoreTranscription(r2)
	require.NoError(t, err)

	records, err := s.GetTranscriptionsByChannel("notes", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "msg1", records[0].MessageID)
}

func TestGetTranscriptionsByTimeRange(t *testing.T) {
	s := testStorage(t)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := s.StoreTranscription(sampleRecord(
			string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	records, err := s.GetTranscriptionsByTimeRange(base, base.Add(time.Hour), 10, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUsageSnapshotRoundTrip(t *testing.T) {
	db, _, err := Open(t.TempDir(), time.Now(), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewUsageStorage(db, logger.NewNop())

	empty, err := s.GetLatestSnapshot()
	require.NoError(t, err)
	assert.Nil(t, empty)

	now := time.Now().UTC().Truncate(time.Second)
	_, err = s.StoreSnapshot(&UsageSnapshot{
		CreatedAt:           now,
		MonthlyUsageMinutes: 12.5,
		DailyUsageMinutes:   2.5,
		MonthlyLimitMinutes: 60,
		TotalRequests:       10,
		SuccessfulRequests:  9,
		FailedRequests:      1,
	})
	require.NoError(t, err)

	got, err := s.GetLatestSnapshot()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 12.5, got.MonthlyUsageMinutes)
	assert.Equal(t, int64(10), got.TotalRequests)
	assert.Equal(t, now, got.CreatedAt)
}

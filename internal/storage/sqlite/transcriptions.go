package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// TranscriptionRecord represents one processed audio attachment in the database
type TranscriptionRecord struct {
	ID               int64     `json:"id"`
	MessageID        string    `json:"message_id"`
	ChannelName      string    `json:"channel_name"`
	AuthorName       string    `json:"author_name"`
	Filename         string    `json:"filename"`
	CreatedAt        time.Time `json:"timestamp"`
	Transcript       string    `json:"transcript"`
	Confidence       float64   `json:"confidence"`
	ConfidenceLevel  string    `json:"confidence_level,omitempty"`
	Success          bool      `json:"success"`
	FallbackUsed     bool      `json:"fallback_used"`
	SavedFilePath    string    `json:"saved_file_path,omitempty"`
	APIUsed          string    `json:"api_used,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// TranscriptionStorage handles storage of transcription records
type TranscriptionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTranscriptionStorage creates a new SQLite transcription storage
func NewTranscriptionStorage(db *sql.DB, logger *logger.Logger) *TranscriptionStorage {
	storage := &TranscriptionStorage{
		db:     db,
		logger: logger.Named("sqlite-tx"),
	}

	// Initialize database
	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize transcription storage", Error(err))
	}

	return storage
}

// initDB initializes the database tables
func (s *TranscriptionStorage) initDB() error {
	// Create transcriptions table
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL,
			channel_name TEXT NOT NULL,
			author_name TEXT,
			filename TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			transcript TEXT,
			confidence REAL NOT NULL,
			confidence_level TEXT,
			success BOOLEAN NOT NULL,
			fallback_used BOOLEAN NOT NULL,
			saved_file_path TEXT,
			api_used TEXT,
			processing_time_ms INTEGER NOT NULL,
			error_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcriptions table: %w", err)
	}

	// Create indexes
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_message_id ON transcriptions(message_id)`)
	if err != nil {
		return fmt.Errorf("failed to create message_id index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_created_at ON transcriptions(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_channel_name ON transcriptions(channel_name)`)
	if err != nil {
		return fmt.Errorf("failed to create channel_name index: %w", err)
	}

	return nil
}

// StoreTranscription stores a transcription record
func (s *TranscriptionStorage) StoreTranscription(record *TranscriptionRecord) (int64, error) {
	// Insert record
	result, err := s.db.Exec(
		`INSERT INTO transcriptions
		(message_id, channel_name, author_name, filename, created_at, transcript, confidence, confidence_level, success, fallback_used, saved_file_path, api_used, processing_time_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.MessageID,
		record.ChannelName,
		record.AuthorName,
		record.Filename,
		record.CreatedAt.Format(time.RFC3339),
		record.Transcript,
		record.Confidence,
		record.ConfidenceLevel,
		record.Success,
		record.FallbackUsed,
		record.SavedFilePath,
		record.APIUsed,
		record.ProcessingTimeMs,
		record.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transcription: %w", err)
	}

	// Get ID
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetTranscriptions returns all transcriptions with pagination
func (s *TranscriptionStorage) GetTranscriptions(limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, message_id, channel_name, author_name, filename, created_at, transcript, confidence, confidence_level, success, fallback_used, saved_file_path, api_used, processing_time_ms, error_message
		FROM transcriptions
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions: %w", err)
	}
	defer rows.Close()

	return scanTranscriptions(rows)
}

// GetTranscriptionsByChannel returns transcriptions for a specific channel
func (s *TranscriptionStorage) GetTranscriptionsByChannel(channelName string, limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, message_id, channel_name, author_name, filename, created_at, transcript, confidence, confidence_level, success, fallback_used, saved_file_path, api_used, processing_time_ms, error_message
		FROM transcriptions
		WHERE channel_name = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		channelName, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions by channel: %w", err)
	}
	defer rows.Close()

	return scanTranscriptions(rows)
}

// GetTranscriptionsByTimeRange returns transcriptions within a time range
func (s *TranscriptionStorage) GetTranscriptionsByTimeRange(startTime, endTime time.Time, limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, message_id, channel_name, author_name, filename, created_at, transcript, confidence, confidence_level, success, fallback_used, saved_file_path, api_used, processing_time_ms, error_message
		FROM transcriptions
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		startTime.Format(time.RFC3339), endTime.Format(time.RFC3339), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions by time range: %w", err)
	}
	defer rows.Close()

	return scanTranscriptions(rows)
}

func scanTranscriptions(rows *sql.Rows) ([]*TranscriptionRecord, error) {
	var records []*TranscriptionRecord
	for rows.Next() {
		var record TranscriptionRecord
		var createdAt string
		var authorName, transcript, confidenceLevel sql.NullString
		var savedFilePath, apiUsed, errorMessage sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.MessageID,
			&record.ChannelName,
			&authorName,
			&record.Filename,
			&createdAt,
			&transcript,
			&record.Confidence,
			&confidenceLevel,
			&record.Success,
			&record.FallbackUsed,
			&savedFilePath,
			&apiUsed,
			&record.ProcessingTimeMs,
			&errorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcription: %w", err)
		}

		// Parse created_at
		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.CreatedAt = parsed

		// Handle nullable fields
		if authorName.Valid {
			record.AuthorName = authorName.String
		}
		if transcript.Valid {
			record.Transcript = transcript.String
		}
		if confidenceLevel.Valid {
			record.ConfidenceLevel = confidenceLevel.String
		}
		if savedFilePath.Valid {
			record.SavedFilePath = savedFilePath.String
		}
		if apiUsed.Valid {
			record.APIUsed = apiUsed.String
		}
		if errorMessage.Valid {
			record.ErrorMessage = errorMessage.String
		}

		records = append(records, &record)
	}

	return records, nil
}

package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// UsageSnapshot is one point-in-time record of API usage counters
type UsageSnapshot struct {
	ID                  int64     `json:"id"`
	CreatedAt           time.Time `json:"timestamp"`
	MonthlyUsageMinutes float64   `json:"monthly_usage_minutes"`
	DailyUsageMinutes   float64   `json:"daily_usage_minutes"`
	MonthlyLimitMinutes float64   `json:"monthly_limit_minutes"`
	TotalRequests       int64     `json:"total_requests"`
	SuccessfulRequests  int64     `json:"successful_requests"`
	FailedRequests      int64     `json:"failed_requests"`
}

// UsageStorage persists periodic usage snapshots so counters survive restarts
type UsageStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewUsageStorage creates a new SQLite usage storage
func NewUsageStorage(db *sql.DB, logger *logger.Logger) *UsageStorage {
	storage := &UsageStorage{
		db:     db,
		logger: logger.Named("sqlite-usage"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize usage storage", Error(err))
	}

	return storage
}

func (s *UsageStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS usage_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TIMESTAMP NOT NULL,
			monthly_usage_minutes REAL NOT NULL,
			daily_usage_minutes REAL NOT NULL,
			monthly_limit_minutes REAL NOT NULL,
			total_requests INTEGER NOT NULL,
			successful_requests INTEGER NOT NULL,
			failed_requests INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create usage_snapshots table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_usage_created_at ON usage_snapshots(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create usage created_at index: %w", err)
	}

	return nil
}

// StoreSnapshot records the current usage counters
func (s *UsageStorage) StoreSnapshot(snap *UsageSnapshot) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO usage_snapshots
		(created_at, monthly_usage_minutes, daily_usage_minutes, monthly_limit_minutes, total_requests, successful_requests, failed_requests)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.CreatedAt.Format(time.RFC3339),
		snap.MonthlyUsageMinutes,
		snap.DailyUsageMinutes,
		snap.MonthlyLimitMinutes,
		snap.TotalRequests,
		snap.SuccessfulRequests,
		snap.FailedRequests,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert usage snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetLatestSnapshot returns the most recent usage snapshot, or nil when the
// table is empty
func (s *UsageStorage) GetLatestSnapshot() (*UsageSnapshot, error) {
	row := s.db.QueryRow(
		`SELECT id, created_at, monthly_usage_minutes, daily_usage_minutes, monthly_limit_minutes, total_requests, successful_requests, failed_requests
		FROM usage_snapshots
		ORDER BY created_at DESC
		LIMIT 1`,
	)

	var snap UsageSnapshot
	var createdAt string
	err := row.Scan(
		&snap.ID,
		&createdAt,
		&snap.MonthlyUsageMinutes,
		&snap.DailyUsageMinutes,
		&snap.MonthlyLimitMinutes,
		&snap.TotalRequests,
		&snap.SuccessfulRequests,
		&snap.FailedRequests,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan usage snapshot: %w", err)
	}

	snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &snap, nil
}

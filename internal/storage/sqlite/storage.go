package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// Import logger functions
var (
	String  = logger.String
	Int     = logger.Int
	Float64 = logger.Float64
	Error   = logger.Error
)

// Open creates or opens the daily database file under basePath and returns
// the connection. The filename embeds the date so each day gets its own file.
func Open(basePath string, at time.Time, log *logger.Logger) (*sql.DB, string, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create database directory: %w", err)
	}

	path := filepath.Join(basePath, fmt.Sprintf("mindbridge-%s.db", at.Format("2006-01-02")))
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Opened SQLite database", String("path", path))
	return db, path, nil
}

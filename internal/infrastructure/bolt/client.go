package bolt

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/fastygo/todo/internal/config"
)

// Open creates the data directory if needed and opens the bbolt file.
func Open(cfg config.BoltConfig, logger *zap.Logger) (*bolt.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := cfg.Path
	if path == "" {
		path = "./data/tasks.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	logger.Info("bolt store opened", zap.String("path", path))
	return db, nil
}

// Close closes the database and logs the result.
func Close(db *bolt.DB, logger *zap.Logger) error {
	if db == nil {
		return nil
	}
	err := db.Close()
	if logger != nil && err == nil {
		logger.Info("bolt store closed")
	}
	return err
}

// Ping verifies the file is still open and readable.
func Ping(db *bolt.DB) error {
	if db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return db.View(func(*bolt.Tx) error { return nil })
}

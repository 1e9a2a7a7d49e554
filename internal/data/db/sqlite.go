package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

func NewSQLite(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")

	path := envutil.String("SQLITE_PATH", "lexbridge.db")

	handle, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
	}

	// Single writer; avoids SQLITE_BUSY under the claim loop.
	if err := handle.Exec(`PRAGMA journal_mode = WAL;`).Error; err != nil {
		return nil, fmt.Errorf("failed to set sqlite journal mode: %w", err)
	}

	return &Service{db: handle, log: serviceLog}, nil
}

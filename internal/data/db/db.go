package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// Service owns the GORM handle. Postgres is the production driver; sqlite
// backs local development when DB_DRIVER=sqlite.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(logg *logger.Logger) (*Service, error) {
	driver := strings.ToLower(envutil.String("DB_DRIVER", "postgres"))
	switch driver {
	case "sqlite":
		return NewSQLite(logg)
	case "postgres", "postgresql":
		return NewPostgres(logg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}

func (s *Service) DB() *gorm.DB { return s.db }

func gormConfig() *gorm.Config {
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}
}

package opportunity_purge

import (
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type Pipeline struct {
	db        *gorm.DB
	log       *logger.Logger
	summaries repos.OpportunitySummaryRepo
}

func New(db *gorm.DB, baseLog *logger.Logger, summaries repos.OpportunitySummaryRepo) *Pipeline {
	return &Pipeline{
		db:        db,
		log:       baseLog.With("job", "opportunity_purge"),
		summaries: summaries,
	}
}

func (p *Pipeline) Type() string { return "opportunity_purge" }

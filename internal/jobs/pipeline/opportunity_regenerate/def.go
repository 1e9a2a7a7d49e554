package opportunity_regenerate

import (
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type Pipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	topics       repos.TopicRepo
	stories      repos.StoryRepo
	explorations repos.ExplorationRepo
	summaries    repos.OpportunitySummaryRepo
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	topics repos.TopicRepo,
	stories repos.StoryRepo,
	explorations repos.ExplorationRepo,
	summaries repos.OpportunitySummaryRepo,
) *Pipeline {
	return &Pipeline{
		db:           db,
		log:          baseLog.With("job", "opportunity_regenerate"),
		topics:       topics,
		stories:      stories,
		explorations: explorations,
		summaries:    summaries,
	}
}

func (p *Pipeline) Type() string { return "opportunity_regenerate" }

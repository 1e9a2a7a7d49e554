package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos/catalog"
	"github.com/yungbote/lexbridge-backend/internal/data/repos/jobs"
	"github.com/yungbote/lexbridge-backend/internal/data/repos/opportunity"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type TopicRepo = catalog.TopicRepo
type StoryRepo = catalog.StoryRepo
type ExplorationRepo = catalog.ExplorationRepo

type OpportunitySummaryRepo = opportunity.OpportunitySummaryRepo

type JobRunRepo = jobs.JobRunRepo
type JobRunEventRepo = jobs.JobRunEventRepo

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return catalog.NewTopicRepo(db, baseLog)
}
func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger) StoryRepo {
	return catalog.NewStoryRepo(db, baseLog)
}
func NewExplorationRepo(db *gorm.DB, baseLog *logger.Logger) ExplorationRepo {
	return catalog.NewExplorationRepo(db, baseLog)
}
func NewOpportunitySummaryRepo(db *gorm.DB, baseLog *logger.Logger) OpportunitySummaryRepo {
	return opportunity.NewOpportunitySummaryRepo(db, baseLog)
}
func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
func NewJobRunEventRepo(db *gorm.DB, baseLog *logger.Logger) JobRunEventRepo {
	return jobs.NewJobRunEventRepo(db, baseLog)
}

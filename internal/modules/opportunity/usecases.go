package opportunity

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/modules/opportunity/steps"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Topics       repos.TopicRepo
	Stories      repos.StoryRepo
	Explorations repos.ExplorationRepo
	Summaries    repos.OpportunitySummaryRepo

	// Project overrides the summary projection; nil means steps.BuildSummary.
	Project steps.ProjectFunc
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	RegenerateInput  = steps.RegenerateInput
	RegenerateOutput = steps.RegenerateOutput

	PurgeInput  = steps.PurgeInput
	PurgeOutput = steps.PurgeOutput
)

func (u Usecases) Regenerate(ctx context.Context, in RegenerateInput) (RegenerateOutput, error) {
	return steps.Regenerate(ctx, steps.RegenerateDeps{
		DB:           u.deps.DB,
		Log:          u.deps.Log,
		Topics:       u.deps.Topics,
		Stories:      u.deps.Stories,
		Explorations: u.deps.Explorations,
		Summaries:    u.deps.Summaries,
		Project:      u.deps.Project,
	}, steps.RegenerateInput(in))
}

func (u Usecases) Purge(ctx context.Context, in PurgeInput) (PurgeOutput, error) {
	return steps.Purge(ctx, steps.PurgeDeps{
		DB:        u.deps.DB,
		Log:       u.deps.Log,
		Summaries: u.deps.Summaries,
	}, steps.PurgeInput(in))
}

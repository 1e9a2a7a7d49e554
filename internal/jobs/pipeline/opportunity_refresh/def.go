package opportunity_refresh

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

// Pipeline rebuilds the contribution opportunity dataset end to end:
// purge the existing summaries, then regenerate them from the catalog.
// Stages run as child jobs by default so the parent survives worker
// restarts; inline mode runs both steps in-process.
type Pipeline struct {
	db   *gorm.DB
	log  *logger.Logger
	jobs services.JobService

	topics       repos.TopicRepo
	stories      repos.StoryRepo
	explorations repos.ExplorationRepo
	summaries    repos.OpportunitySummaryRepo

	minPoll time.Duration
	maxPoll time.Duration

	childMaxWait      time.Duration
	childStaleRunning time.Duration
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs services.JobService,
	topics repos.TopicRepo,
	stories repos.StoryRepo,
	explorations repos.ExplorationRepo,
	summaries repos.OpportunitySummaryRepo,
) *Pipeline {
	minPoll := 2 * time.Second
	maxPoll := 10 * time.Second
	if v := strings.TrimSpace(os.Getenv("OPPORTUNITY_REFRESH_MIN_POLL_MS")); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			minPoll = time.Duration(ms) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("OPPORTUNITY_REFRESH_MAX_POLL_MS")); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			maxPoll = time.Duration(ms) * time.Millisecond
		}
	}
	minPollFloor := 2 * time.Second
	if minPoll < minPollFloor {
		if baseLog != nil {
			baseLog.Warn("opportunity_refresh: min poll too low; clamping", "requested_ms", minPoll.Milliseconds(), "floor_ms", minPollFloor.Milliseconds())
		}
		minPoll = minPollFloor
	}
	if maxPoll < minPoll {
		maxPoll = minPoll
	}

	childMaxWait := 20 * time.Minute
	if v := strings.TrimSpace(os.Getenv("OPPORTUNITY_REFRESH_CHILD_MAX_MINUTES")); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins > 0 {
			childMaxWait = time.Duration(mins) * time.Minute
		}
	}

	childStaleRunning := 10 * time.Minute
	if v := strings.TrimSpace(os.Getenv("OPPORTUNITY_REFRESH_CHILD_STALE_RUNNING_MINUTES")); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins > 0 {
			childStaleRunning = time.Duration(mins) * time.Minute
		}
	}

	return &Pipeline{
		db:                db,
		log:               baseLog.With("job", "opportunity_refresh"),
		jobs:              jobs,
		topics:            topics,
		stories:           stories,
		explorations:      explorations,
		summaries:         summaries,
		minPoll:           minPoll,
		maxPoll:           maxPoll,
		childMaxWait:      childMaxWait,
		childStaleRunning: childStaleRunning,
	}
}

func (p *Pipeline) Type() string { return "opportunity_refresh" }

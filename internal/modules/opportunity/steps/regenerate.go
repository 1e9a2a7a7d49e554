package steps

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

const summaryWriteBatch = 500

type RegenerateDeps struct {
	DB           *gorm.DB
	Log          *logger.Logger
	Topics       repos.TopicRepo
	Stories      repos.StoryRepo
	Explorations repos.ExplorationRepo
	Summaries    repos.OpportunitySummaryRepo

	// Project overrides the summary projection; nil means BuildSummary.
	Project ProjectFunc
}

type RegenerateInput struct {
	Report func(stage string, pct int, message string)
}

type RegenerateOutput struct {
	TopicsProcessed         int      `json:"topics_processed"`
	TopicsFailed            int      `json:"topics_failed"`
	SummariesEmitted        int      `json:"summaries_emitted"`
	SummariesWritten        int      `json:"summaries_written"`
	DuplicateStoryIDs       int      `json:"duplicate_story_ids,omitempty"`
	DuplicateExplorationIDs int      `json:"duplicate_exploration_ids,omitempty"`
	Reports                 []string `json:"reports"`
}

// Regenerate rebuilds the opportunity summary dataset from one consistent
// read of the catalog. Topics are reconciled independently and in parallel
// over shared read-only lookup tables; nothing is written until every topic's
// outcome is in. A topic with a broken reference contributes a failure report
// and zero rows, never partial output. Storage errors abort the whole run.
func Regenerate(ctx context.Context, deps RegenerateDeps, in RegenerateInput) (RegenerateOutput, error) {
	out := RegenerateOutput{}
	if deps.DB == nil || deps.Log == nil || deps.Topics == nil || deps.Stories == nil || deps.Explorations == nil || deps.Summaries == nil {
		return out, fmt.Errorf("opportunity_regenerate: missing deps")
	}

	reporter := newProgressReporter("regenerate", in.Report, 2, 2*time.Second)
	dbc := dbctx.Context{Ctx: ctx}

	reporter.Update(3, "reading catalog snapshot")
	topics, err := deps.Topics.ListAll(dbc)
	if err != nil {
		return out, err
	}
	stories, err := deps.Stories.ListAll(dbc)
	if err != nil {
		return out, err
	}
	exps, err := deps.Explorations.ListAll(dbc)
	if err != nil {
		return out, err
	}

	storyTable := NewStoryTable(stories)
	expTable := NewExplorationTable(exps)
	out.DuplicateStoryIDs = storyTable.Duplicates()
	out.DuplicateExplorationIDs = expTable.Duplicates()
	if storyTable.Duplicates() > 0 || expTable.Duplicates() > 0 {
		deps.Log.Warn("duplicate ids in catalog snapshot, keeping last row read",
			"duplicate_story_ids", storyTable.Duplicates(),
			"duplicate_exploration_ids", expTable.Duplicates())
	}

	out.TopicsProcessed = len(topics)
	if len(topics) == 0 {
		out.Reports = []string{}
		reporter.Update(99, "no topics to reconcile")
		return out, nil
	}

	maxConc := envutil.Int("OPPORTUNITY_REGEN_CONCURRENCY", 8)
	if maxConc < 1 {
		maxConc = 1
	}

	reporter.Update(10, fmt.Sprintf("reconciling %d topics", len(topics)))

	// Outcomes land in their topic's slot so reports keep snapshot order no
	// matter which worker finishes first.
	outcomes := make([]TopicOutcome, len(topics))
	var done atomic.Int64

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConc)
	for i, topic := range topics {
		i, topic := i, topic
		g.Go(func() error {
			outcomes[i] = reconcileTopic(topic, storyTable, expTable, deps.Project)
			n := int(done.Add(1))
			reporter.UpdateRange(n, len(topics), 10, 85, fmt.Sprintf("reconciled %d/%d topics", n, len(topics)))
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return out, err
	}

	records := make([]*types.OpportunitySummary, 0)
	reports := make([]string, 0, len(outcomes))
	for _, oc := range outcomes {
		reports = append(reports, oc.Report())
		if oc.Failed() {
			out.TopicsFailed++
			continue
		}
		records = append(records, oc.Records...)
	}
	out.Reports = reports
	out.SummariesEmitted = len(records)

	// A story linking one exploration from several chapters emits several
	// records with the same digest id; collapse to the last one so a single
	// multi-row upsert cannot touch the same row twice.
	records = collapseByID(records)
	out.SummariesWritten = len(records)

	reporter.Update(88, fmt.Sprintf("writing %d summaries", len(records)))
	if len(records) > 0 {
		if err := deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txc := dbctx.Context{Ctx: ctx, Tx: tx}
			for start := 0; start < len(records); start += summaryWriteBatch {
				end := start + summaryWriteBatch
				if end > len(records) {
					end = len(records)
				}
				if err := deps.Summaries.Upsert(txc, records[start:end]); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return out, err
		}
	}

	deps.Log.Info("opportunity regeneration finished",
		"topics", out.TopicsProcessed,
		"failed", out.TopicsFailed,
		"written", out.SummariesWritten)
	reporter.Update(99, "regeneration finished")
	return out, nil
}

// collapseByID keeps one record per id, last write wins, first-seen order.
func collapseByID(records []*types.OpportunitySummary) []*types.OpportunitySummary {
	slot := make(map[string]int, len(records))
	out := make([]*types.OpportunitySummary, 0, len(records))
	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		if i, ok := slot[rec.ID]; ok {
			out[i] = rec
			continue
		}
		slot[rec.ID] = len(out)
		out = append(out, rec)
	}
	return out
}

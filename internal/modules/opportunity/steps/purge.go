package steps

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

const purgeDeleteBatch = 500

type PurgeDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Summaries repos.OpportunitySummaryRepo
}

type PurgeInput struct {
	Report func(stage string, pct int, message string)
}

type PurgeOutput struct {
	Deleted int      `json:"deleted"`
	Reports []string `json:"reports,omitempty"`
}

// Purge hard-deletes every live opportunity summary so a follow-up
// regeneration starts from an empty dataset. The reported count comes from
// the rows read, not from delete acknowledgements. A run that finds nothing
// to delete reports nothing.
func Purge(ctx context.Context, deps PurgeDeps, in PurgeInput) (PurgeOutput, error) {
	out := PurgeOutput{}
	if deps.DB == nil || deps.Log == nil || deps.Summaries == nil {
		return out, fmt.Errorf("opportunity_purge: missing deps")
	}

	reporter := newProgressReporter("purge", in.Report, 2, 2*time.Second)

	reporter.Update(5, "reading live summaries")
	rows, err := deps.Summaries.ListAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return out, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.ID == "" {
			continue
		}
		ids = append(ids, row.ID)
	}

	if len(ids) > 0 {
		reporter.Update(40, fmt.Sprintf("deleting %d summaries", len(ids)))
		if err := deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txc := dbctx.Context{Ctx: ctx, Tx: tx}
			for start := 0; start < len(ids); start += purgeDeleteBatch {
				end := start + purgeDeleteBatch
				if end > len(ids) {
					end = len(ids)
				}
				if err := deps.Summaries.FullDeleteByIDs(txc, ids[start:end]); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return out, err
		}
	}

	out.Deleted = len(ids)
	if out.Deleted > 0 {
		out.Reports = []string{fmt.Sprintf("SUCCESS %d", out.Deleted)}
	}

	deps.Log.Info("opportunity purge finished", "deleted", out.Deleted)
	reporter.Update(99, "purge finished")
	return out, nil
}

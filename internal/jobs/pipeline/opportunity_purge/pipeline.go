package opportunity_purge

import (
	jobrt "github.com/yungbote/lexbridge-backend/internal/jobs/runtime"
	oppmod "github.com/yungbote/lexbridge-backend/internal/modules/opportunity"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	jc.Progress("purge", 2, "Deleting existing opportunity summaries")
	out, err := oppmod.New(oppmod.UsecasesDeps{
		DB:        p.db,
		Log:       p.log,
		Summaries: p.summaries,
	}).Purge(jc.Ctx, oppmod.PurgeInput{
		Report: func(stage string, pct int, message string) {
			jc.Progress(stage, pct, message)
		},
	})
	if err != nil {
		jc.Fail("purge", err)
		return nil
	}

	for _, line := range out.Reports {
		jc.Report(line)
	}
	jc.Succeed("done", out)
	return nil
}

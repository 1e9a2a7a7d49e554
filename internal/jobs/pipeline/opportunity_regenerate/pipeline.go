package opportunity_regenerate

import (
	jobrt "github.com/yungbote/lexbridge-backend/internal/jobs/runtime"
	oppmod "github.com/yungbote/lexbridge-backend/internal/modules/opportunity"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	jc.Progress("regenerate", 2, "Regenerating contribution opportunities")
	out, err := oppmod.New(oppmod.UsecasesDeps{
		DB:           p.db,
		Log:          p.log,
		Topics:       p.topics,
		Stories:      p.stories,
		Explorations: p.explorations,
		Summaries:    p.summaries,
	}).Regenerate(jc.Ctx, oppmod.RegenerateInput{
		Report: func(stage string, pct int, message string) {
			jc.Progress(stage, pct, message)
		},
	})
	if err != nil {
		jc.Fail("regenerate", err)
		return nil
	}

	for _, line := range out.Reports {
		jc.Report(line)
	}
	jc.Succeed("done", out)
	return nil
}

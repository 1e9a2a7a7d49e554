package opportunity_refresh

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"gorm.io/datatypes"

	orchestrator "github.com/yungbote/lexbridge-backend/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/lexbridge-backend/internal/jobs/runtime"
	oppmod "github.com/yungbote/lexbridge-backend/internal/modules/opportunity"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if p == nil || p.db == nil || p.log == nil {
		jc.Fail("validate", fmt.Errorf("opportunity_refresh: pipeline not configured"))
		return nil
	}

	st := loadState(jc.Job.Result)
	if strings.TrimSpace(st.Mode) == "" {
		st.Mode = resolveMode(jc)
	}
	if strings.TrimSpace(st.Variant) == "" {
		st.Variant = resolveVariant(jc)
	}

	switch strings.ToLower(strings.TrimSpace(st.Mode)) {
	case "inline":
		return p.runInline(jc, st)
	default:
		return p.runChild(jc, st)
	}
}

func resolveMode(jc *jobrt.Context) string {
	if jc == nil {
		return "child"
	}
	// Payload override (useful for dev).
	if v, ok := jc.Payload()["mode"]; ok {
		s := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
		if s == "inline" {
			return "inline"
		}
	}
	// Env override.
	if strings.EqualFold(strings.TrimSpace(os.Getenv("OPPORTUNITY_REFRESH_MODE")), "inline") {
		return "inline"
	}
	return "child"
}

func resolveVariant(jc *jobrt.Context) string {
	if jc == nil {
		return ""
	}
	if v, ok := jc.Payload()["variant"]; ok {
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
	return ""
}

func (p *Pipeline) runChild(jc *jobrt.Context, st *state) error {
	if p.isCanceled(jc) {
		return nil
	}
	if p.jobs == nil {
		jc.Fail("validate", fmt.Errorf("child mode requested but job service is not configured"))
		return nil
	}

	engine := orchestrator.NewDAGEngine(p.jobs)
	engine.MinPollInterval = p.minPoll
	engine.MaxPollInterval = p.maxPoll
	engine.ChildMaxWait = p.childMaxWait
	engine.ChildStaleRunning = p.childStaleRunning
	engine.ResultEncoder = orchestrator.EncodeFlatState
	engine.IsCanceled = func(ctx *jobrt.Context) bool {
		return p.isCanceled(ctx)
	}

	mode := st.Mode
	variant := st.Variant
	init := func(ost *orchestrator.OrchestratorState) {
		if ost == nil {
			return
		}
		if ost.Meta == nil {
			ost.Meta = map[string]any{}
		}
		ost.Meta["mode"] = mode
		if variant != "" {
			ost.Meta["variant"] = variant
		}
	}

	finalResult := map[string]any{"mode": mode}
	if variant != "" {
		finalResult["variant"] = variant
	}
	stages := buildChildStages(p.log, variant)
	return engine.Run(jc, stages, finalResult, init)
}

func (p *Pipeline) runInline(jc *jobrt.Context, st *state) error {
	if p.topics == nil || p.stories == nil || p.explorations == nil || p.summaries == nil {
		jc.Fail("validate", fmt.Errorf("inline mode requested but repos are not configured"))
		return nil
	}

	usecases := oppmod.New(oppmod.UsecasesDeps{
		DB:           p.db,
		Log:          p.log,
		Topics:       p.topics,
		Stories:      p.stories,
		Explorations: p.explorations,
		Summaries:    p.summaries,
	})

	stageNames := pipelineVariantStages(p.log, st.Variant)
	total := len(stageNames)
	for i, stageName := range stageNames {
		if p.isCanceled(jc) {
			return nil
		}

		ss := st.ensureStage(stageName)
		if ss.Status == stageStatusSucceeded {
			continue
		}

		base := progressForStage(i, total)
		ceil := progressForStage(i+1, total)
		progress := st.setProgress(base)
		jc.Progress(stageName, progress, "Running "+stageName+" inline")
		report := func(stage string, pct int, message string) {
			scaled := base + (ceil-base)*pct/100
			jc.Progress(stage, st.setProgress(scaled), message)
		}

		now := time.Now().UTC()
		ss.StartedAt = &now

		var reports []string
		var result any
		var stageErr error
		switch stageName {
		case "purge":
			out, err := usecases.Purge(jc.Ctx, oppmod.PurgeInput{Report: report})
			reports, result, stageErr = out.Reports, out, err
		case "regenerate":
			out, err := usecases.Regenerate(jc.Ctx, oppmod.RegenerateInput{Report: report})
			reports, result, stageErr = out.Reports, out, err
		default:
			stageErr = fmt.Errorf("unknown stage %q", stageName)
		}

		if stageErr != nil {
			ss.Status = stageStatusFailed
			ss.LastError = stageErr.Error()
			done := time.Now().UTC()
			ss.FinishedAt = &done
			_ = p.saveState(jc, st)
			jc.Fail(stageName, stageErr)
			return nil
		}

		for _, line := range reports {
			jc.Report(line)
		}
		ss.Status = stageStatusSucceeded
		ss.Result = result
		done := time.Now().UTC()
		ss.FinishedAt = &done
		_ = p.saveState(jc, st)
	}

	res := map[string]any{
		"mode":   st.Mode,
		"stages": st.Stages,
	}
	if st.Variant != "" {
		res["variant"] = st.Variant
	}
	jc.Succeed("done", res)
	return nil
}

func (p *Pipeline) saveState(jc *jobrt.Context, st *state) error {
	if jc == nil || jc.Job == nil || jc.Repo == nil || st == nil {
		return nil
	}
	b, _ := json.Marshal(st)
	if err := jc.Repo.UpdateFields(dbctx.Context{Ctx: jc.Ctx}, jc.Job.ID, map[string]interface{}{"result": datatypes.JSON(b)}); err != nil {
		return err
	}
	jc.Job.Result = b
	return nil
}

func progressForStage(i, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(float64(i) / float64(total) * 100)
	if pct < 0 {
		return 0
	}
	if pct > 99 {
		return 99
	}
	return pct
}

func (p *Pipeline) isCanceled(jc *jobrt.Context) bool {
	if jc == nil || jc.Job == nil || jc.Repo == nil {
		return false
	}
	rows, err := jc.Repo.GetByIDs(dbctx.Context{Ctx: jc.Ctx}, []uuid.UUID{jc.Job.ID})
	if err != nil || len(rows) == 0 || rows[0] == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(rows[0].Status), "canceled")
}

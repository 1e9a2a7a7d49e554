package opportunity_refresh

import (
	"github.com/google/uuid"

	orchestrator "github.com/yungbote/lexbridge-backend/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/lexbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// buildChildStages maps the variant's stage subset onto orchestrator stages.
// Dependencies on stages outside the subset are dropped so a partial variant
// still forms a valid graph.
func buildChildStages(log *logger.Logger, variant string) []orchestrator.Stage {
	names := pipelineVariantStages(log, variant)
	inVariant := map[string]bool{}
	for _, name := range names {
		inVariant[name] = true
	}

	stages := make([]orchestrator.Stage, 0, len(names))
	for _, name := range names {
		deps := []string{}
		for _, dep := range pipelineStageDeps(log, name) {
			if inVariant[dep] {
				deps = append(deps, dep)
			}
		}
		stages = append(stages, orchestrator.Stage{
			Name:         name,
			Deps:         deps,
			Mode:         orchestrator.ModeChild,
			ChildJobType: pipelineStageJobType(log, name),
			ChildEntity: func(ctx *jobrt.Context) (string, *uuid.UUID) {
				return "opportunity", nil
			},
			ChildPayload: func(ctx *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
				return map[string]any{}, nil
			},
		})
	}
	return stages
}

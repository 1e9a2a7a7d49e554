package opportunity_refresh

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

const refreshPipelineEnv = "OPPORTUNITY_REFRESH_PIPELINE_YAML"

//go:embed opportunity_refresh.yaml
var refreshSpecFS embed.FS

// fallback stage graph used when YAML is missing or invalid
var fallbackStageOrder = []string{
	"purge",
	"regenerate",
}

var fallbackStageDeps = map[string][]string{
	"regenerate": {"purge"},
}

var fallbackStageJobTypes = map[string]string{
	"purge":      "opportunity_purge",
	"regenerate": "opportunity_regenerate",
}

var fallbackVariants = map[string][]string{
	"regenerate_only": {"regenerate"},
}

type yamlPipelineSpec struct {
	Pipeline string                 `yaml:"pipeline"`
	Version  int                    `yaml:"version"`
	Stages   []yamlStageSpec        `yaml:"stages"`
	Variants map[string]yamlVariant `yaml:"variants"`
}

type yamlStageSpec struct {
	Name      string         `yaml:"name"`
	JobType   string         `yaml:"job_type"`
	DependsOn []string       `yaml:"depends_on"`
	Enabled   *bool          `yaml:"enabled"`
	Config    map[string]any `yaml:"config"`
}

type yamlVariant struct {
	Stages []string `yaml:"stages"`
}

type pipelineRuntime struct {
	StageOrder []string
	Stages     map[string]yamlStageSpec
	Variants   map[string][]string
}

var runtimeOnce sync.Once
var runtimeCache *pipelineRuntime
var runtimeErr error

func currentPipelineRuntime(log *logger.Logger) *pipelineRuntime {
	runtimeOnce.Do(func() {
		runtimeCache, runtimeErr = loadPipelineRuntime()
	})
	if runtimeErr != nil {
		if log != nil {
			log.Warn("opportunity_refresh: pipeline spec load failed; using fallback", "error", runtimeErr)
		}
		return nil
	}
	return runtimeCache
}

func pipelineStageOrder(log *logger.Logger) []string {
	if rt := currentPipelineRuntime(log); rt != nil && len(rt.StageOrder) > 0 {
		return rt.StageOrder
	}
	return fallbackStageOrder
}

func pipelineStageSpec(log *logger.Logger, name string) (yamlStageSpec, bool) {
	if rt := currentPipelineRuntime(log); rt != nil {
		if spec, ok := rt.Stages[name]; ok {
			return spec, true
		}
	}
	return yamlStageSpec{}, false
}

func pipelineStageDeps(log *logger.Logger, name string) []string {
	if spec, ok := pipelineStageSpec(log, name); ok {
		return spec.DependsOn
	}
	if deps, ok := fallbackStageDeps[name]; ok {
		return deps
	}
	return nil
}

func pipelineStageJobType(log *logger.Logger, name string) string {
	if spec, ok := pipelineStageSpec(log, name); ok && spec.JobType != "" {
		return spec.JobType
	}
	if jt, ok := fallbackStageJobTypes[name]; ok {
		return jt
	}
	return name
}

// pipelineVariantStages resolves a variant name to its stage subset. The
// empty variant means the full pipeline; unknown variants fall back to the
// full pipeline with a warning.
func pipelineVariantStages(log *logger.Logger, variant string) []string {
	variant = strings.ToLower(strings.TrimSpace(variant))
	if variant == "" {
		return pipelineStageOrder(log)
	}
	if rt := currentPipelineRuntime(log); rt != nil {
		if stages, ok := rt.Variants[variant]; ok && len(stages) > 0 {
			return stages
		}
	}
	if stages, ok := fallbackVariants[variant]; ok {
		return stages
	}
	if log != nil {
		log.Warn("opportunity_refresh: unknown variant; running full pipeline", "variant", variant)
	}
	return pipelineStageOrder(log)
}

func loadPipelineRuntime() (*pipelineRuntime, error) {
	data, err := readRefreshSpec()
	if err != nil {
		return nil, err
	}

	var spec yamlPipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if err := validatePipelineSpec(&spec); err != nil {
		return nil, err
	}

	order := make([]string, 0, len(spec.Stages))
	stages := make(map[string]yamlStageSpec, len(spec.Stages))
	for _, stage := range spec.Stages {
		if stage.Name == "" {
			continue
		}
		if stage.Enabled != nil && !*stage.Enabled {
			continue
		}
		if stage.JobType == "" {
			stage.JobType = stage.Name
		}
		stage.DependsOn = dedupeStrings(stage.DependsOn)
		order = append(order, stage.Name)
		stages[stage.Name] = stage
	}

	variants := map[string][]string{}
	for key, v := range spec.Variants {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		subset := []string{}
		for _, name := range v.Stages {
			if _, ok := stages[name]; ok {
				subset = append(subset, name)
			}
		}
		if len(subset) > 0 {
			variants[key] = subset
		}
	}

	return &pipelineRuntime{
		StageOrder: order,
		Stages:     stages,
		Variants:   variants,
	}, nil
}

func readRefreshSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(refreshPipelineEnv)); path != "" {
		return os.ReadFile(path)
	}
	return refreshSpecFS.ReadFile("opportunity_refresh.yaml")
}

func validatePipelineSpec(spec *yamlPipelineSpec) error {
	if spec == nil {
		return errors.New("missing spec")
	}
	if strings.TrimSpace(spec.Pipeline) != "opportunity_refresh" {
		return fmt.Errorf("unexpected pipeline: %s", spec.Pipeline)
	}
	if len(spec.Stages) == 0 {
		return errors.New("no stages defined")
	}

	enabled := map[string]bool{}
	order := make([]string, 0, len(spec.Stages))
	for _, stage := range spec.Stages {
		name := strings.TrimSpace(stage.Name)
		if name == "" {
			return errors.New("stage name is required")
		}
		if _, exists := enabled[name]; exists {
			return fmt.Errorf("duplicate stage name: %s", name)
		}
		if stage.Enabled != nil && !*stage.Enabled {
			continue
		}
		enabled[name] = true
		order = append(order, name)
	}

	orderIndex := map[string]int{}
	for i, name := range order {
		orderIndex[name] = i
	}

	for _, stage := range spec.Stages {
		name := strings.TrimSpace(stage.Name)
		if name == "" {
			continue
		}
		if stage.Enabled != nil && !*stage.Enabled {
			continue
		}
		for _, dep := range stage.DependsOn {
			dep = strings.TrimSpace(dep)
			if dep == "" {
				continue
			}
			if !enabled[dep] {
				return fmt.Errorf("stage %s: unknown dependency %s", name, dep)
			}
			if orderIndex[dep] > orderIndex[name] {
				return fmt.Errorf("stage %s: dependency %s appears after stage in order", name, dep)
			}
		}
	}

	for key, variant := range spec.Variants {
		if strings.TrimSpace(key) == "" {
			return errors.New("variant name is required")
		}
		seen := map[string]bool{}
		for _, name := range variant.Stages {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !enabled[name] {
				return fmt.Errorf("variant %s: unknown stage %s", key, name)
			}
			if seen[name] {
				return fmt.Errorf("variant %s: duplicate stage %s", key, name)
			}
			seen[name] = true
		}
	}

	return nil
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

package analysis

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"outpost/internal/domain/models"
)

//go:embed config/thresholds.yaml
var thresholdsYAML []byte

type thresholdConfig struct {
	Roles map[string]map[string]float64 `yaml:"roles"`
}

var defaultThresholds thresholdConfig

func init() {
	if err := yaml.Unmarshal(thresholdsYAML, &defaultThresholds); err != nil {
		panic(fmt.Sprintf("parsing embedded thresholds: %v", err))
	}
}

// threshold resolves a trigger threshold for an agent: the agent's own
// trigger_conditions win, then the role default, then the fallback.
func threshold(agent *models.Agent, key string, fallback float64) float64 {
	if v, ok := agent.TriggerConditions[key]; ok {
		return v
	}
	if defaults, ok := defaultThresholds.Roles[agent.Role]; ok {
		if v, ok := defaults[key]; ok {
			return v
		}
	}
	return fallback
}

// Alert is one subscriber-facing notification produced by an analysis
// pass.
type Alert struct {
	Title       string
	Description string
	Severity    string
	Data        map[string]any
}

// Report is the outcome of one analysis pass over one agent's domain.
type Report struct {
	Data      map[string]any
	Insights  map[string]any
	Anomalies []any
	Alerts    []Alert
}

// Analyzer produces a report for agents of one role.
type Analyzer interface {
	// Role is the agent role this analyzer handles.
	Role() string
	// Analyze inspects the agent's data sources and reports findings.
	Analyze(ctx context.Context, agent *models.Agent) (*Report, error)
}

// registry maps agent roles to their analyzers. Dispatch is a lookup,
// so adding an analyzer means adding an entry here, not another branch.
type registry map[string]Analyzer

func newRegistry(analyzers ...Analyzer) registry {
	r := make(registry, len(analyzers))
	for _, a := range analyzers {
		r[a.Role()] = a
	}
	return r
}

func defaultRegistry() registry {
	return newRegistry(
		&devEfficiencyAnalyzer{},
		&npsAnalyzer{},
	)
}

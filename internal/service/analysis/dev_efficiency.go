package analysis

import (
	"context"
	"fmt"

	"outpost/internal/domain/models"
)

// devEfficiencyAnalyzer inspects engineering throughput metrics.
//
// The metrics are synthesized until real data-source connectors land;
// the shape of the report matches what connectors will produce.
type devEfficiencyAnalyzer struct{}

func (a *devEfficiencyAnalyzer) Role() string { return "dev_efficiency_analyst" }

func (a *devEfficiencyAnalyzer) Analyze(ctx context.Context, agent *models.Agent) (*Report, error) {
	metrics := map[string]any{
		"avg_review_time_hours": 36.5,
		"prs_merged":            42,
		"prs_open":              18,
		"avg_pr_size_lines":     312,
		"deployment_frequency":  "2.3/day",
	}

	reviewThreshold := threshold(agent, "review_time_threshold", 24)
	avgReviewTime := metrics["avg_review_time_hours"].(float64)

	report := &Report{
		Data: metrics,
		Insights: map[string]any{
			"summary": "Code review latency is the main bottleneck this period.",
			"trend":   "review_time_increasing",
		},
	}

	if avgReviewTime > reviewThreshold {
		report.Anomalies = append(report.Anomalies, map[string]any{
			"metric":    "avg_review_time_hours",
			"value":     avgReviewTime,
			"threshold": reviewThreshold,
		})
		report.Alerts = append(report.Alerts, Alert{
			Title:    "Code review time exceeds threshold",
			Severity: models.SeverityWarning,
			Description: fmt.Sprintf(
				"Average review time is %.1f hours, above the %.0f hour threshold. Consider redistributing review load.",
				avgReviewTime, reviewThreshold,
			),
			Data: map[string]any{
				"avg_review_time_hours": avgReviewTime,
				"threshold":             reviewThreshold,
			},
		})
	}

	return report, nil
}

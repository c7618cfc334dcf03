package analysis

import (
	"context"
	"fmt"

	"outpost/internal/domain/models"
)

// npsAnalyzer tracks customer satisfaction scores.
//
// Metrics are synthesized until survey connectors land.
type npsAnalyzer struct{}

func (a *npsAnalyzer) Role() string { return "nps_analyst" }

func (a *npsAnalyzer) Analyze(ctx context.Context, agent *models.Agent) (*Report, error) {
	metrics := map[string]any{
		"current_nps":     34.0,
		"previous_nps":    47.0,
		"responses":       186,
		"promoters_pct":   48.0,
		"detractors_pct":  14.0,
		"top_complaint":   "onboarding complexity",
		"top_compliment":  "support responsiveness",
	}

	npsThreshold := threshold(agent, "nps_threshold", 40)
	currentNPS := metrics["current_nps"].(float64)
	previousNPS := metrics["previous_nps"].(float64)

	report := &Report{
		Data: metrics,
		Insights: map[string]any{
			"summary": "NPS dropped sharply, driven by onboarding friction among new accounts.",
			"trend":   "declining",
		},
	}

	if currentNPS < npsThreshold {
		report.Anomalies = append(report.Anomalies, map[string]any{
			"metric":    "current_nps",
			"value":     currentNPS,
			"threshold": npsThreshold,
		})
		severity := models.SeverityWarning
		if previousNPS-currentNPS >= 10 {
			severity = models.SeverityCritical
		}
		report.Alerts = append(report.Alerts, Alert{
			Title:    "NPS below threshold",
			Severity: severity,
			Description: fmt.Sprintf(
				"NPS is %.0f, below the %.0f threshold (was %.0f last period). Main driver: %s.",
				currentNPS, npsThreshold, previousNPS, metrics["top_complaint"],
			),
			Data: map[string]any{
				"current_nps":  currentNPS,
				"previous_nps": previousNPS,
				"threshold":    npsThreshold,
			},
		})
	}

	return report, nil
}

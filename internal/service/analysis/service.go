// Package analysis runs the periodic sweep that turns each subscribed
// agent's data sources into analytics rows and subscriber alerts.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outpost/internal/domain/models"
	"outpost/internal/domain/repositories"
)

type Service struct {
	subRepo       repositories.SubscriptionRepository
	alertRepo     repositories.AlertRepository
	analyticsRepo repositories.AnalyticsRepository
	txManager     repositories.TransactionManager
	analyzers     registry
	logger        *slog.Logger
}

func NewService(
	subRepo repositories.SubscriptionRepository,
	alertRepo repositories.AlertRepository,
	analyticsRepo repositories.AnalyticsRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *Service {
	return &Service{
		subRepo:       subRepo,
		alertRepo:     alertRepo,
		analyticsRepo: analyticsRepo,
		txManager:     txManager,
		analyzers:     defaultRegistry(),
		logger:        logger,
	}
}

// RunSummary reports what one sweep accomplished.
type RunSummary struct {
	AgentsAnalyzed   int `json:"agentsAnalyzed"`
	AgentsFailed     int `json:"agentsFailed"`
	AlertsCreated    int `json:"alertsCreated"`
	SubscribersSwept int `json:"subscribersSwept"`
}

// Run sweeps every agent that has at least one active subscription,
// dispatches the role's analyzer, and durably records the report plus
// one alert per opted-in subscriber. A failing agent is logged and
// skipped; the sweep continues.
func (s *Service) Run(ctx context.Context) (*RunSummary, error) {
	subs, err := s.subRepo.ListActiveWithAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active subscriptions: %w", err)
	}

	// Group subscribers under their agent. The listing is ordered by
	// agent, so grouping preserves sweep order.
	type agentGroup struct {
		agent       *models.Agent
		subscribers []*models.Subscription
	}
	var groups []*agentGroup
	byAgent := make(map[string]*agentGroup)
	for _, sub := range subs {
		g, ok := byAgent[sub.Agent.ID]
		if !ok {
			g = &agentGroup{agent: &sub.Agent}
			byAgent[sub.Agent.ID] = g
			groups = append(groups, g)
		}
		g.subscribers = append(g.subscribers, &sub.Subscription)
	}

	summary := &RunSummary{SubscribersSwept: len(subs)}

	for _, g := range groups {
		analyzer, ok := s.analyzers[g.agent.Role]
		if !ok {
			s.logger.Debug("no analyzer for role, skipping agent",
				slog.String("agent_id", g.agent.ID),
				slog.String("role", g.agent.Role),
			)
			continue
		}

		created, err := s.analyzeAgent(ctx, analyzer, g.agent, g.subscribers)
		if err != nil {
			summary.AgentsFailed++
			s.logger.Error("agent analysis failed",
				slog.String("agent_id", g.agent.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		summary.AgentsAnalyzed++
		summary.AlertsCreated += created
	}

	s.logger.Info("analysis sweep finished",
		slog.Int("agents_analyzed", summary.AgentsAnalyzed),
		slog.Int("agents_failed", summary.AgentsFailed),
		slog.Int("alerts_created", summary.AlertsCreated),
	)
	return summary, nil
}

// analyzeAgent runs one analyzer and writes its report and alerts in a
// single transaction, so a crash never records analytics whose alerts
// were lost.
func (s *Service) analyzeAgent(
	ctx context.Context,
	analyzer Analyzer,
	agent *models.Agent,
	subscribers []*models.Subscription,
) (int, error) {
	report, err := analyzer.Analyze(ctx, agent)
	if err != nil {
		return 0, fmt.Errorf("analyzing: %w", err)
	}

	created := 0
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		analytics := &models.AgentAnalytics{
			AgentID:         agent.ID,
			AnalysisDate:    time.Now().UTC().Truncate(24 * time.Hour),
			AnalysisPeriod:  "daily",
			Data:            report.Data,
			Insights:        report.Insights,
			Anomalies:       report.Anomalies,
			AlertsGenerated: 0,
		}

		for _, alert := range report.Alerts {
			for _, sub := range subscribers {
				if !sub.NotifyOnAlert {
					continue
				}
				row := &models.Alert{
					UserID:      sub.UserID,
					AgentID:     agent.ID,
					Title:       alert.Title,
					Description: alert.Description,
					Severity:    alert.Severity,
					Data:        alert.Data,
				}
				if err := s.alertRepo.Insert(txCtx, row); err != nil {
					return fmt.Errorf("inserting alert: %w", err)
				}
				created++
			}
		}

		analytics.AlertsGenerated = created
		if err := s.analyticsRepo.Insert(txCtx, analytics); err != nil {
			return fmt.Errorf("inserting analytics: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

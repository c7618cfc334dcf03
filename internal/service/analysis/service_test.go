package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"outpost/internal/domain/models"
	"outpost/internal/domain/repositories"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeSubRepo struct {
	subs []models.SubscriptionWithAgent
}

func (f *fakeSubRepo) Upsert(ctx context.Context, sub *models.Subscription) error { return nil }
func (f *fakeSubRepo) Deactivate(ctx context.Context, userID, agentID string) error {
	return nil
}
func (f *fakeSubRepo) ListByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	return nil, nil
}
func (f *fakeSubRepo) ListActiveWithAgents(ctx context.Context) ([]models.SubscriptionWithAgent, error) {
	return f.subs, nil
}

type fakeAlertRepo struct {
	inserted []models.Alert
}

func (f *fakeAlertRepo) Insert(ctx context.Context, alert *models.Alert) error {
	f.inserted = append(f.inserted, *alert)
	return nil
}
func (f *fakeAlertRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Alert, error) {
	return nil, nil
}
func (f *fakeAlertRepo) MarkRead(ctx context.Context, alertID, userID string) error { return nil }

type fakeAnalyticsRepo struct {
	inserted []models.AgentAnalytics
	failFor  string // agent id whose insert fails
}

func (f *fakeAnalyticsRepo) Insert(ctx context.Context, rec *models.AgentAnalytics) error {
	if f.failFor != "" && rec.AgentID == f.failFor {
		return errors.New("insert failed")
	}
	f.inserted = append(f.inserted, *rec)
	return nil
}

// fakeTxManager runs the function directly; rollback is simulated by the
// caller checking the returned error.
type fakeTxManager struct{}

func (f *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// ============================================================================
// FIXTURES
// ============================================================================

func devAgent() models.Agent {
	return models.Agent{
		ID:       "agent-dev",
		Name:     "DevBot",
		Role:     "dev_efficiency_analyst",
		IsActive: true,
	}
}

func npsAgent() models.Agent {
	return models.Agent{
		ID:       "agent-nps",
		Name:     "PulseBot",
		Role:     "nps_analyst",
		IsActive: true,
	}
}

func subFor(agent models.Agent, userID string, notify bool) models.SubscriptionWithAgent {
	return models.SubscriptionWithAgent{
		Subscription: models.Subscription{
			ID:            "sub-" + userID + "-" + agent.ID,
			UserID:        userID,
			AgentID:       agent.ID,
			NotifyOnAlert: notify,
			IsActive:      true,
		},
		Agent: agent,
	}
}

func newTestService(subRepo *fakeSubRepo, alertRepo *fakeAlertRepo, analyticsRepo *fakeAnalyticsRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(subRepo, alertRepo, analyticsRepo, &fakeTxManager{}, logger)
}

// ============================================================================
// TESTS
// ============================================================================

func TestRun_AlertsOnlyForOptedInSubscribers(t *testing.T) {
	subRepo := &fakeSubRepo{subs: []models.SubscriptionWithAgent{
		subFor(devAgent(), "user-1", true),
		subFor(devAgent(), "user-2", false),
		subFor(devAgent(), "user-3", true),
	}}
	alertRepo := &fakeAlertRepo{}
	analyticsRepo := &fakeAnalyticsRepo{}
	svc := newTestService(subRepo, alertRepo, analyticsRepo)

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The dev analyzer's synthetic review time exceeds the default
	// threshold, so one alert per opted-in subscriber.
	if summary.AlertsCreated != 2 {
		t.Errorf("alerts created = %d, want 2", summary.AlertsCreated)
	}
	for _, a := range alertRepo.inserted {
		if a.UserID == "user-2" {
			t.Error("alert created for subscriber with notifications off")
		}
		if a.Severity != models.SeverityWarning {
			t.Errorf("alert severity = %q, want warning", a.Severity)
		}
	}
}

func TestRun_RecordsAnalyticsPerAgent(t *testing.T) {
	subRepo := &fakeSubRepo{subs: []models.SubscriptionWithAgent{
		subFor(devAgent(), "user-1", true),
		subFor(npsAgent(), "user-1", true),
	}}
	alertRepo := &fakeAlertRepo{}
	analyticsRepo := &fakeAnalyticsRepo{}
	svc := newTestService(subRepo, alertRepo, analyticsRepo)

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.AgentsAnalyzed != 2 {
		t.Errorf("agents analyzed = %d, want 2", summary.AgentsAnalyzed)
	}
	if len(analyticsRepo.inserted) != 2 {
		t.Fatalf("analytics rows = %d, want 2", len(analyticsRepo.inserted))
	}
	for _, rec := range analyticsRepo.inserted {
		if rec.AnalysisPeriod != "daily" {
			t.Errorf("analysis period = %q, want daily", rec.AnalysisPeriod)
		}
		if rec.AlertsGenerated != 1 {
			t.Errorf("agent %s alerts_generated = %d, want 1", rec.AgentID, rec.AlertsGenerated)
		}
	}
}

func TestRun_UnknownRoleSkipped(t *testing.T) {
	unknown := models.Agent{ID: "agent-x", Role: "astrology_analyst", IsActive: true}
	subRepo := &fakeSubRepo{subs: []models.SubscriptionWithAgent{
		subFor(unknown, "user-1", true),
		subFor(devAgent(), "user-1", true),
	}}
	alertRepo := &fakeAlertRepo{}
	analyticsRepo := &fakeAnalyticsRepo{}
	svc := newTestService(subRepo, alertRepo, analyticsRepo)

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.AgentsAnalyzed != 1 {
		t.Errorf("agents analyzed = %d, want 1 (unknown role skipped)", summary.AgentsAnalyzed)
	}
	if summary.AgentsFailed != 0 {
		t.Errorf("agents failed = %d, want 0", summary.AgentsFailed)
	}
}

func TestRun_FailingAgentDoesNotStopSweep(t *testing.T) {
	subRepo := &fakeSubRepo{subs: []models.SubscriptionWithAgent{
		subFor(devAgent(), "user-1", true),
		subFor(npsAgent(), "user-1", true),
	}}
	alertRepo := &fakeAlertRepo{}
	analyticsRepo := &fakeAnalyticsRepo{failFor: "agent-dev"}
	svc := newTestService(subRepo, alertRepo, analyticsRepo)

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.AgentsFailed != 1 {
		t.Errorf("agents failed = %d, want 1", summary.AgentsFailed)
	}
	if summary.AgentsAnalyzed != 1 {
		t.Errorf("agents analyzed = %d, want 1", summary.AgentsAnalyzed)
	}
	if len(analyticsRepo.inserted) != 1 || analyticsRepo.inserted[0].AgentID != "agent-nps" {
		t.Errorf("analytics rows = %+v, want only agent-nps", analyticsRepo.inserted)
	}
}

func TestRun_NoSubscriptions(t *testing.T) {
	svc := newTestService(&fakeSubRepo{}, &fakeAlertRepo{}, &fakeAnalyticsRepo{})

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.AgentsAnalyzed != 0 || summary.AlertsCreated != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
}

func TestThreshold_AgentOverridesDefault(t *testing.T) {
	agent := devAgent()
	agent.TriggerConditions = map[string]float64{"review_time_threshold": 100}

	// 100 from the agent, not 24 from the role defaults.
	if got := threshold(&agent, "review_time_threshold", 0); got != 100 {
		t.Errorf("threshold = %v, want 100", got)
	}

	agent.TriggerConditions = nil
	if got := threshold(&agent, "review_time_threshold", 0); got != 24 {
		t.Errorf("default threshold = %v, want 24 from embedded config", got)
	}

	if got := threshold(&agent, "unknown_key", 7); got != 7 {
		t.Errorf("fallback threshold = %v, want 7", got)
	}
}

func TestDevEfficiencyAnalyzer_HighThresholdSuppressesAlert(t *testing.T) {
	agent := devAgent()
	agent.TriggerConditions = map[string]float64{"review_time_threshold": 1000}

	report, err := (&devEfficiencyAnalyzer{}).Analyze(context.Background(), &agent)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(report.Alerts) != 0 {
		t.Errorf("alerts = %d, want 0 with a high threshold", len(report.Alerts))
	}
	if len(report.Anomalies) != 0 {
		t.Errorf("anomalies = %d, want 0 with a high threshold", len(report.Anomalies))
	}
}

func TestNPSAnalyzer_CriticalOnSharpDrop(t *testing.T) {
	agent := npsAgent()

	report, err := (&npsAnalyzer{}).Analyze(context.Background(), &agent)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(report.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(report.Alerts))
	}
	// The synthetic drop is more than 10 points.
	if report.Alerts[0].Severity != models.SeverityCritical {
		t.Errorf("severity = %q, want critical", report.Alerts[0].Severity)
	}
}

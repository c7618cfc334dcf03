package models

import (
	"time"
)

// Subscription links a user to an agent whose findings they want to be
// alerted about. At most one active subscription per user-agent pair.
type Subscription struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"user_id" db:"user_id"`
	AgentID        string     `json:"agent_id" db:"agent_id"`
	NotifyOnAlert  bool       `json:"notify_on_alert" db:"notify_on_alert"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	SubscribedAt   time.Time  `json:"subscribed_at" db:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty" db:"unsubscribed_at"`
}

// SubscriptionWithAgent is a subscription joined with its agent definition,
// as consumed by the analysis sweep.
type SubscriptionWithAgent struct {
	Subscription
	Agent Agent `json:"agent"`
}

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a per-subscriber notification produced by the analysis job.
type Alert struct {
	ID          string         `json:"id" db:"id"`
	AgentID     string         `json:"agent_id" db:"agent_id"`
	UserID      string         `json:"user_id" db:"user_id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	Severity    string         `json:"severity" db:"severity"`
	Data        map[string]any `json:"data,omitempty" db:"data"`
	IsRead      bool           `json:"is_read" db:"is_read"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// AgentAnalytics records one analysis run's outcome for an agent.
type AgentAnalytics struct {
	ID              string         `json:"id" db:"id"`
	AgentID         string         `json:"agent_id" db:"agent_id"`
	AnalysisDate    time.Time      `json:"analysis_date" db:"analysis_date"`
	AnalysisPeriod  string         `json:"analysis_period" db:"analysis_period"`
	Data            map[string]any `json:"data,omitempty" db:"data"`
	Insights        map[string]any `json:"insights,omitempty" db:"insights"`
	Anomalies       []any          `json:"anomalies,omitempty" db:"anomalies"`
	AlertsGenerated int            `json:"alerts_generated" db:"alerts_generated"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

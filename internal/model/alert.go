package model

// Severity is the server-assigned urgency of an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Alert is a server-generated notification about budget state.
type Alert struct {
	ID        string    `json:"id"`
	AlertType string    `json:"alert_type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	IsRead    bool      `json:"is_read"`
	CreatedAt Timestamp `json:"created_at"`
}

// AlertPreferences controls which alerts the service raises. Thresholds are
// fractions of a budget's limit in [0, 1].
type AlertPreferences struct {
	EmailEnabled           bool    `json:"email_enabled"`
	InAppEnabled           bool    `json:"in_app_enabled"`
	WarningThreshold       float64 `json:"warning_threshold"`
	CriticalThreshold      float64 `json:"critical_threshold"`
	UnusualSpendingEnabled bool    `json:"unusual_spending_enabled"`
	BillRemindersEnabled   bool    `json:"bill_reminders_enabled"`
	WeeklySummaryEnabled   bool    `json:"weekly_summary_enabled"`
}

// AlertPreferencesUpdate changes only the fields that are set.
type AlertPreferencesUpdate struct {
	EmailEnabled           *bool    `json:"email_enabled,omitempty"`
	InAppEnabled           *bool    `json:"in_app_enabled,omitempty"`
	WarningThreshold       *float64 `json:"warning_threshold,omitempty"`
	CriticalThreshold      *float64 `json:"critical_threshold,omitempty"`
	UnusualSpendingEnabled *bool    `json:"unusual_spending_enabled,omitempty"`
	BillRemindersEnabled   *bool    `json:"bill_reminders_enabled,omitempty"`
	WeeklySummaryEnabled   *bool    `json:"weekly_summary_enabled,omitempty"`
}

// Insight is a generated recommendation shown on the dashboard.
type Insight struct {
	ID          string    `json:"id"`
	InsightType string    `json:"insight_type,omitempty"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   Timestamp `json:"created_at"`
}

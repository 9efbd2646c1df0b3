package models

// Internal-console aggregates. These shapes are owned by the gateway; every
// endpoint below requires the founder role, enforced server-side as well.

// UserData is one row of the platform user directory, with per-user counts
// aggregated server-side in a single query.
type UserData struct {
	ID             string  `json:"id"`
	PseudonymousID string  `json:"pseudonymous_id"`
	ConsentGiven   bool    `json:"consent_given"`
	ConsentDate    *string `json:"consent_date"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	TradesCount    int     `json:"trades_count"`
	ChatsCount     int     `json:"chats_count"`
}

// OverviewMetrics is the internal dashboard headline block.
type OverviewMetrics struct {
	TotalUsers      int `json:"totalUsers"`
	ActiveUsersWeek int `json:"activeUsersWeek"`
	TotalTrades     int `json:"totalTrades"`
	TotalChats      int `json:"totalChats"`
}

// InternalAnalytics summarizes platform-wide trading activity.
type InternalAnalytics struct {
	TotalTrades int     `json:"totalTrades"`
	AvgProfit   float64 `json:"avgProfit"`
	WinRate     float64 `json:"winRate"`
	AvgHoldTime float64 `json:"avgHoldTime"`
}

// BillingMetrics is the billing and plan aggregate.
type BillingMetrics struct {
	MRR           float64 `json:"mrr"`
	ActivePlans   int     `json:"activePlans"`
	TrialAccounts int     `json:"trialAccounts"`
	ChurnRate     float64 `json:"churnRate"`
}

// AnalyticsReport is the AI-generated summary of the caller's own trades.
type AnalyticsReport struct {
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

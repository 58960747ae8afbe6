package models

import (
	"time"

	"github.com/adpulse/adsync/pkg/database"
)

// AdSet represents a synced ad set. Targeting is stored as an opaque blob;
// the store never decomposes it relationally.
type AdSet struct {
	AdSetID          string                         `db:"adset_id" json:"adset_id"`
	CampaignID       string                         `db:"campaign_id" json:"campaign_id"`
	AccountID        string                         `db:"account_id" json:"account_id"`
	Name             string                         `db:"name" json:"name"`
	Status           string                         `db:"status" json:"status"`
	ConfiguredStatus string                         `db:"configured_status" json:"configured_status"`
	EffectiveStatus  string                         `db:"effective_status" json:"effective_status"`
	DailyBudget      *float64                       `db:"daily_budget" json:"daily_budget,omitempty"`
	LifetimeBudget   *float64                       `db:"lifetime_budget" json:"lifetime_budget,omitempty"`
	BudgetRemaining  *float64                       `db:"budget_remaining" json:"budget_remaining,omitempty"`
	OptimizationGoal *string                        `db:"optimization_goal" json:"optimization_goal,omitempty"`
	BillingEvent     *string                        `db:"billing_event" json:"billing_event,omitempty"`
	Targeting        database.JSONB[map[string]any] `db:"targeting" json:"targeting,omitempty"`
	StartTime        *time.Time                     `db:"start_time" json:"start_time,omitempty"`
	EndTime          *time.Time                     `db:"end_time" json:"end_time,omitempty"`
	LastSyncAt       *time.Time                     `db:"last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt        time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                      `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (AdSet) TableName() string {
	return "adsets"
}

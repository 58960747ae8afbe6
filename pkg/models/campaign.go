package models

import (
	"time"

	"github.com/adpulse/adsync/pkg/database"
)

// Campaign represents a synced campaign. The three status fields mirror the
// Graph API: status is what was requested, configured_status is what is set,
// effective_status folds in parent and delivery state.
type Campaign struct {
	CampaignID       string                           `db:"campaign_id" json:"campaign_id"`
	AccountID        string                           `db:"account_id" json:"account_id"`
	Name             string                           `db:"name" json:"name"`
	Objective        string                           `db:"objective" json:"objective"`
	Status           string                           `db:"status" json:"status"`
	ConfiguredStatus string                           `db:"configured_status" json:"configured_status"`
	EffectiveStatus  string                           `db:"effective_status" json:"effective_status"`
	DailyBudget      *float64                         `db:"daily_budget" json:"daily_budget,omitempty"`
	LifetimeBudget   *float64                         `db:"lifetime_budget" json:"lifetime_budget,omitempty"`
	BudgetRemaining  *float64                         `db:"budget_remaining" json:"budget_remaining,omitempty"`
	BidStrategy      *string                          `db:"bid_strategy" json:"bid_strategy,omitempty"`
	StartTime        *time.Time                       `db:"start_time" json:"start_time,omitempty"`
	StopTime         *time.Time                       `db:"stop_time" json:"stop_time,omitempty"`
	Issues           database.JSONB[[]map[string]any] `db:"issues" json:"issues,omitempty"`
	LastSyncAt       *time.Time                       `db:"last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt        time.Time                        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                        `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Campaign) TableName() string {
	return "campaigns"
}

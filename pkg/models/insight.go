package models

import (
	"time"

	"github.com/adpulse/adsync/pkg/database"
)

// Insight entity types
const (
	EntityTypeCampaign = "campaign"
	EntityTypeAdSet    = "adset"
	EntityTypeAd       = "ad"
)

// DailyInsight is the single metric fact table: one row per
// (entity_type, entity_id, date_start). The breakdown columns carry
// variable-shape Graph API payloads and are never interpreted by the store.
type DailyInsight struct {
	ID               int64                            `db:"id" json:"id"`
	EntityType       string                           `db:"entity_type" json:"entity_type"`
	EntityID         string                           `db:"entity_id" json:"entity_id"`
	EntityName       string                           `db:"entity_name" json:"entity_name"`
	AccountID        string                           `db:"account_id" json:"account_id"`
	DateStart        time.Time                        `db:"date_start" json:"date_start"`
	Spend            float64                          `db:"spend" json:"spend"`
	Impressions      int64                            `db:"impressions" json:"impressions"`
	Clicks           int64                            `db:"clicks" json:"clicks"`
	Reach            int64                            `db:"reach" json:"reach"`
	Frequency        float64                          `db:"frequency" json:"frequency"`
	CTR              float64                          `db:"ctr" json:"ctr"`
	CPC              float64                          `db:"cpc" json:"cpc"`
	CPM              float64                          `db:"cpm" json:"cpm"`
	CPP              float64                          `db:"cpp" json:"cpp"`
	Actions          database.JSONB[[]map[string]any] `db:"actions" json:"actions,omitempty"`
	ActionValues     database.JSONB[[]map[string]any] `db:"action_values" json:"action_values,omitempty"`
	Conversions      database.JSONB[[]map[string]any] `db:"conversions" json:"conversions,omitempty"`
	ConversionValues database.JSONB[[]map[string]any] `db:"conversion_values" json:"conversion_values,omitempty"`
	VideoMetrics     database.JSONB[[]map[string]any] `db:"video_metrics" json:"video_metrics,omitempty"`
	CreatedAt        time.Time                        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                        `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (DailyInsight) TableName() string {
	return "daily_insights"
}

// InsightFilter narrows a daily insight query
type InsightFilter struct {
	AccountID  string
	EntityType string
	EntityID   string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

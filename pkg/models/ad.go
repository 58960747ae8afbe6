package models

import (
	"time"

	"github.com/adpulse/adsync/pkg/database"
)

// Ad represents a synced ad with its creative reference
type Ad struct {
	AdID             string                         `db:"ad_id" json:"ad_id"`
	AdSetID          string                         `db:"adset_id" json:"adset_id"`
	CampaignID       string                         `db:"campaign_id" json:"campaign_id"`
	AccountID        string                         `db:"account_id" json:"account_id"`
	Name             string                         `db:"name" json:"name"`
	Status           string                         `db:"status" json:"status"`
	ConfiguredStatus string                         `db:"configured_status" json:"configured_status"`
	EffectiveStatus  string                         `db:"effective_status" json:"effective_status"`
	Creative         database.JSONB[map[string]any] `db:"creative" json:"creative,omitempty"`
	PreviewURL       *string                        `db:"preview_url" json:"preview_url,omitempty"`
	LastSyncAt       *time.Time                     `db:"last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt        time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                      `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Ad) TableName() string {
	return "ads"
}
